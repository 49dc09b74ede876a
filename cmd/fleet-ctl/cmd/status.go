package cmd

import (
	"context"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
	"github.com/oshokin/fleet-status/internal/service/client"
)

func unitCommand(use, short string, run func(ctx context.Context, s *client.Session, unitID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <unit-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return run(ctx, s, args[0])
			})
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	dispatchCmd := unitCommand("dispatch", "Send a unit out and show its fallback.",
		func(ctx context.Context, s *client.Session, unitID string) error {
			return s.Dispatch(ctx, unitID)
		})

	logisticsCmd := unitCommand("logistics", "Move a unit to logistics and start its timer.",
		func(ctx context.Context, s *client.Session, unitID string) error {
			return s.Transition(ctx, domain.StatusLogistics, unitID)
		})

	destinationCmd := unitCommand("destination", "Move a unit to destination and start its timer.",
		func(ctx context.Context, s *client.Session, unitID string) error {
			return s.Transition(ctx, domain.StatusDestination, unitID)
		})

	resetCmd := unitCommand("reset", "Make a unit available again.",
		func(ctx context.Context, s *client.Session, unitID string) error {
			return s.Transition(ctx, domain.StatusAvailable, unitID)
		})
	resetCmd.Aliases = []string{"reset-logistics", "reset-destination"}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show every unit with its status, timer and alert.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, _ := cmd.Flags().GetString("category")

			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Status(ctx, category)
			})
		},
	}
	statusCmd.Flags().String("category", "", "unit id prefix for the availability count")

	availabilityCmd := &cobra.Command{
		Use:   "availability [unit-id]...",
		Short: "Mark the listed units available and the other idle units unavailable.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.SetAvailability(ctx, args)
			})
		},
	}

	rootCmd.AddCommand(dispatchCmd, logisticsCmd, destinationCmd, resetCmd, statusCmd, availabilityCmd)
}
