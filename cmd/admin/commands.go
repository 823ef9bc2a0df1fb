package main

import (
	"fmt"
	"time"

	"floodrescue/backend/internal/auth"
	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/proximity"
	"floodrescue/backend/internal/tracking"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo requests if the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.store.SeedIfEmpty(app.ctx, time.Now())
			if err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}
			if n == 0 {
				fmt.Println("Store already has requests, nothing seeded.")
				return nil
			}
			app.logger.Info("Seeded demo requests", zap.Int("count", n))
			fmt.Printf("Seeded %d demo requests.\n", n)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var (
		sortBy   string
		lat, lng float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests ranked like the responder queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := proximity.ParseSortMode(sortBy)
			if err != nil {
				return err
			}
			var from *models.Location
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				from = &models.Location{Lat: lat, Lng: lng}
			}

			reqs, err := app.store.ListRequests(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list requests: %w", err)
			}

			fmt.Printf("\nFound %d requests:\n\n", len(reqs))
			for _, r := range proximity.Rank(reqs, mode, from) {
				distance := ""
				if d := proximity.FormatDistanceKm(proximity.DistanceFrom(from, r)); d != "" {
					distance = fmt.Sprintf(" %s km", d)
				}
				rescuer := ""
				if r.RescuerID != "" {
					rescuer = fmt.Sprintf(" [Responder: %s]", r.RescuerID)
				}
				fmt.Printf("- %s %-8s %-20s %s %s (%s)%s%s\n",
					r.ID,
					r.Severity,
					r.Status,
					r.ContactName,
					r.ContactPhone,
					r.Timestamp.Format(time.RFC3339),
					distance,
					rescuer,
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "severity", "Sort mode: severity, time or distance")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Observer latitude for distance")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Observer longitude for distance")
	return cmd
}

func trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <phone>",
		Short: "Show the active request submitted with a phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := tracking.FindActiveByPhone(app.ctx, app.store, args[0])
			if err != nil {
				return err
			}
			if r == nil {
				fmt.Printf("No active request for %s.\n", args[0])
				return nil
			}
			fmt.Printf("%s %s %s, %d messages\n", r.ID, r.Severity, r.Status, len(r.Messages))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		role        string
		name, phone string
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an identity token, e.g. for a vetted responder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer := auth.NewIssuer(app.cfg.JWTSecret, config.TokenTTL)
			token, err := issuer.Issue(args[0], auth.Role(role), name, phone)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleResponder), "Token role: responder or requester")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&phone, "phone", "", "Contact phone")
	return cmd
}
