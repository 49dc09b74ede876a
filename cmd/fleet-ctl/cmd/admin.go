package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
	"github.com/oshokin/fleet-status/internal/service/client"
)

var (
	// locations holds --location unit=place pairs.
	locations []string
	// fallbacks holds --fallback unit=a,b pairs.
	fallbacks []string

	// adminCmd updates unit locations and fallback rules.
	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Update unit locations and fallback rules.",
		Long: `Updates unit locations and replaces every fallback rule, then saves the fleet file.

Units not given a --fallback get an empty fallback list.

Example:
  fleet-ctl admin --location Medic1="Station 4" --fallback Medic1=Medic2,Medic3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			update, err := parseAdminFlags(locations, fallbacks)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.UpdateFleet(ctx, update)
			})
		},
	}
)

// parseAdminFlags turns unit=value pairs into a fleet update.
func parseAdminFlags(locationPairs, fallbackPairs []string) (domain.FleetUpdate, error) {
	update := domain.FleetUpdate{
		Locations: make(map[string]string, len(locationPairs)),
		Fallbacks: make(map[string][]string, len(fallbackPairs)),
	}

	for _, pair := range locationPairs {
		id, value, err := splitPair(pair)
		if err != nil {
			return domain.FleetUpdate{}, err
		}

		update.Locations[id] = value
	}

	for _, pair := range fallbackPairs {
		id, value, err := splitPair(pair)
		if err != nil {
			return domain.FleetUpdate{}, err
		}

		update.Fallbacks[id] = domain.ParseFallbackList(value)
	}

	return update, nil
}

func splitPair(pair string) (string, string, error) {
	id, value, ok := strings.Cut(pair, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return "", "", fmt.Errorf("%w: expected unit=value, got %q", domain.ErrConfigurationInvalid, pair)
	}

	return strings.TrimSpace(id), strings.TrimSpace(value), nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	adminCmd.Flags().StringArrayVar(&locations, "location", nil, "unit=location, repeatable")
	adminCmd.Flags().StringArrayVar(&fallbacks, "fallback", nil, "unit=comma-separated fallbacks, repeatable")

	rootCmd.AddCommand(adminCmd)
}
