package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// seedPlayer is one entry of the roster file.
type seedPlayer struct {
	Username string `json:"username"`
	Country  string `json:"country"`
	Password string `json:"password"`
}

func newSeedPlayersCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-players",
		Short: "Create player accounts from a JSON roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var players []seedPlayer
			if err := json.Unmarshal(data, &players); err != nil {
				return fmt.Errorf("unmarshal %s: %w", file, err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			dbCfg := dbconfig.NewConfigFromEnv()
			pool, err := pgxpool.New(ctx, dbCfg.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer pool.Close()

			var (
				total    = len(players)
				inserted int
				skipped  int
				errs     int
			)
			for _, p := range players {
				username := strings.TrimSpace(p.Username)
				if username == "" || !slices.Contains(cfg.Game.Countries, p.Country) {
					log.Warn().Str("username", p.Username).Str("country", p.Country).Msg("skipping invalid roster entry")
					errs++
					continue
				}

				var hash *string
				if p.Password != "" {
					h, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
					if err != nil {
						errs++
						continue
					}
					s := string(h)
					hash = &s
				}

				tag, err := pool.Exec(ctx, `
            INSERT INTO users (id, username, role, country, password_hash)
            VALUES ($1, $2, 'player', $3, $4)
            ON CONFLICT DO NOTHING
        `, uuid.New(), username, p.Country, hash)
				if err != nil {
					log.Error().Err(err).Str("username", username).Msg("error inserting player")
					errs++
					continue
				}
				if tag.RowsAffected() == 1 {
					inserted++
				} else {
					skipped++
				}
			}

			log.Info().
				Int("total", total).
				Int("inserted", inserted).
				Int("skipped", skipped).
				Int("errors", errs).
				Msg("players seed complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "players.json", "path to the JSON roster")
	return cmd
}
