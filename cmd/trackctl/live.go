package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/live"
	"github.com/regattaflow/trackcore/internal/models"
)

var (
	liveEventID string
	liveRaceID  string
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Follow a live race and print boat position updates.",
	Long: `Live connects to the configured tracking feed for one event (optionally a
single race) and prints every status transition and position update until
interrupted. Feed endpoints and credentials come from the service
configuration (CONFIG_FILE, .env, or environment variables).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rest := live.NewRestClient(
			cfg.Live.BaseURL,
			cfg.Live.APIKey,
			time.Duration(cfg.Live.RequestTimeoutMS)*time.Millisecond,
			nil, 0,
		)

		client := live.NewClient(live.Options{
			Config: live.ClientConfigFrom(cfg.Live),
			Rest:   rest,
			OnStatus: func(status models.SessionStatus) {
				fmt.Printf("-- session %s\n", status)
			},
			OnPosition: func(boat models.LiveBoat) {
				name := boat.SailNumber
				if name == "" {
					name = boat.ID
				}
				fmt.Printf("%-12s %9.5f %10.5f  %5.1f kn  %05.1f°\n",
					name, boat.Lat, boat.Lng, boat.SpeedKn, boat.HeadingDeg)
			},
		})

		if event := rest.GetEvent(ctx, liveEventID); event != nil {
			fmt.Printf("Event: %s (%s)\n", event.Name, event.Venue)
		}

		if err := client.Connect(liveEventID, liveRaceID); err != nil {
			return err
		}

		<-ctx.Done()
		client.Disconnect()
		fmt.Println("\nSession closed.")
		return nil
	},
}

func init() {
	liveCmd.Flags().StringVar(&liveEventID, "event", "", "event ID to follow (required)")
	liveCmd.Flags().StringVar(&liveRaceID, "race", "", "race ID to scope the session to")
	_ = liveCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(liveCmd)
}
