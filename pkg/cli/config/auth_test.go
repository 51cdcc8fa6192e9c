package config_test

import (
	"testing"

	"github.com/feedbackloop/actionflow/pkg/cli/config"
	"github.com/feedbackloop/actionflow/pkg/repository/memory"
	"github.com/m-mizutani/gt"
)

func TestAuth_Configure(t *testing.T) {
	repo := memory.New()

	t.Run("no-auth", func(t *testing.T) {
		cfg := config.NewAuthForTest("ignored", "", "", "t1:admin1")
		gt.Bool(t, cfg.IsNoAuthMode()).True()

		uc, err := cfg.Configure(repo)
		gt.NoError(t, err).Required()
		gt.Bool(t, uc.IsNoAuthn()).True()

		actor, err := uc.Authenticate(t.Context(), "")
		gt.NoError(t, err).Required()
		gt.Value(t, actor.TenantID).Equal("t1")
		gt.Value(t, actor.UserID).Equal("admin1")
	})

	t.Run("no-auth needs tenant and user", func(t *testing.T) {
		for _, v := range []string{"admin1", ":admin1", "t1:"} {
			_, err := config.NewAuthForTest("", "", "", v).Configure(repo)
			gt.Error(t, err)
		}
	})

	t.Run("hmac secret", func(t *testing.T) {
		uc, err := config.NewAuthForTest("s3cr3t-s3cr3t-s3cr3t-s3cr3t-s3cr3t", "", "actionflow", "").Configure(repo)
		gt.NoError(t, err).Required()
		gt.Bool(t, uc.IsNoAuthn()).False()
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := config.NewAuthForTest("", "", "", "").Configure(repo)
		gt.Error(t, err)
	})

	t.Run("secret and jwks are exclusive", func(t *testing.T) {
		_, err := config.NewAuthForTest("secret", "https://example.com/jwks.json", "", "").Configure(repo)
		gt.Error(t, err)
	})
}
