package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixEvent        CachePrefix = "EVENT_"
	CachePrefixRaces        CachePrefix = "RACES_"
	CachePrefixBoats        CachePrefix = "BOATS_"
	CachePrefixTrackHistory CachePrefix = "HIST_"
)
