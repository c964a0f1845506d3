package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

const DefaultTokenEnv = "GITHUB_TOKEN"

type TokenSource string

const (
	TokenSourceExplicit TokenSource = "explicit"
	TokenSourceEnv      TokenSource = "env"
	TokenSourceGHCLI    TokenSource = "gh"
)

// TokenQuery describes where to look for a token used to read remote entries
// published in GitHub repositories.
type TokenQuery struct {
	// Provided wins when non-empty.
	Provided string
	// EnvVar names the environment variable to consult. Empty means GITHUB_TOKEN.
	EnvVar string
	// Host is passed to `gh auth token -h`. Empty means github.com.
	Host string
}

// ResolveToken resolves an access token by precedence: provided value, the
// configured environment variable, then `gh auth token`. An empty token with a
// nil error means anonymous access. The token is never logged.
func ResolveToken(ctx context.Context, q TokenQuery) (string, TokenSource, error) {
	if tok := strings.TrimSpace(q.Provided); tok != "" {
		return tok, TokenSourceExplicit, nil
	}

	envVar := q.EnvVar
	if envVar == "" {
		envVar = DefaultTokenEnv
	}
	if tok := strings.TrimSpace(os.Getenv(envVar)); tok != "" {
		return tok, TokenSourceEnv, nil
	}

	host := q.Host
	if host == "" {
		host = "github.com"
	}
	tok, err := tokenFromCLI(ctx, host)
	if err != nil {
		return "", "", err
	}
	if tok != "" {
		return tok, TokenSourceGHCLI, nil
	}
	return "", "", nil
}

func tokenFromCLI(ctx context.Context, host string) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	// A broken credential helper must not hang startup.
	cmdCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", host)
	env := make([]string, 0, len(os.Environ())+1)
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "GH_PAGER=") {
			env = append(env, entry)
		}
	}
	cmd.Env = append(env, "GH_PAGER=cat")

	out, err := cmd.Output()
	if err != nil {
		if cmdCtx.Err() != nil {
			return "", cmdCtx.Err()
		}
		// gh present but logged out: anonymous access, raw output not surfaced.
		return "", nil
	}

	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, nil
}
