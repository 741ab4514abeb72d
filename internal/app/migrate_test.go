package app_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/app"
)

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://pricing:pw@db:5432/pricing?sslmode=disable": "pgx5://pricing:pw@db:5432/pricing?sslmode=disable",
		" postgresql://pricing@localhost/pricing ":              "pgx5://pricing@localhost/pricing",
		"pgx5://already@localhost/pricing":                      "pgx5://already@localhost/pricing",
	}
	for in, want := range cases {
		require.Equal(t, want, app.MigrationURL(in), in)
	}
}

func TestNewMigratorRejectsUnknownScheme(t *testing.T) {
	_, err := app.NewMigrator("mysql://db/pricing")
	require.Error(t, err)
}
