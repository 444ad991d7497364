package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

const testSecret = "ctl-test-secret"

// run executes ticketctl with args against mr and returns stdout.
func run(t *testing.T, mr *miniredis.Miniredis, args ...string) (string, error) {
	t.Helper()
	root, err := newRootCmd()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--secret", testSecret, "--redis", mr.Addr()}, args...))
	err = root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestIssueThenRedeem(t *testing.T) {
	mr := miniredis.RunT(t)

	tk, err := run(t, mr, "issue", "--message", "hi", "--to", "Bob", "--from", "Alice", "--ttl", "60")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(tk, "Bearer ") {
		t.Fatalf("issue output: %q", tk)
	}
	if keys := mr.Keys(); len(keys) != 1 || !strings.HasPrefix(keys[0], ticket.DefaultKeyPrefix) {
		t.Fatalf("store keys: %v", keys)
	}

	out, err := run(t, mr, "redeem", tk)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !strings.Contains(out, "admitted") || !strings.Contains(out, "to=Bob") {
		t.Errorf("redeem output: %q", out)
	}

	_, err = run(t, mr, "redeem", tk)
	var deny *ticket.DenyError
	if !errors.As(err, &deny) || deny.Reason != ticket.ReasonInvalidOrExpired {
		t.Fatalf("second redeem: expected invalid_or_expired, got %v", err)
	}
}

func TestBypass(t *testing.T) {
	mr := miniredis.RunT(t)

	tk, err := run(t, mr, "bypass", "--message", "ops", "--to", "Bob", "--from", "ops", "--ttl", "10m")
	if err != nil {
		t.Fatalf("bypass: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("bypass registered store keys: %v", keys)
	}
	for i := 0; i < 2; i++ {
		if _, err := run(t, mr, "redeem", tk); err != nil {
			t.Fatalf("bypass redeem %d: %v", i, err)
		}
	}
}

func TestBypass_RejectsFractionalTTL(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := run(t, mr, "bypass", "--message", "ops", "--to", "Bob", "--from", "ops", "--ttl", "1500ms")
	if !errors.Is(err, ticket.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	mr := miniredis.RunT(t)

	tk, err := run(t, mr, "issue", "--message", "hi", "--to", "Bob", "--from", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	out, err := run(t, mr, "inspect", tk)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var in inspection
	if err := json.Unmarshal([]byte(out), &in); err != nil {
		t.Fatalf("inspect output is not JSON: %v\n%s", err, out)
	}
	if in.Kind != "standard" || in.Issuer != ticket.DefaultIssuer || in.TicketID == "" {
		t.Errorf("inspection: %+v", in)
	}
	if in.Action.TimeToLiveSec != 45 || in.Action.To != "Bob" {
		t.Errorf("action: %+v", in.Action)
	}
	// Inspecting does not spend the ticket.
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("store keys after inspect: %v", keys)
	}
}

func TestSecretRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	root, err := newRootCmd()
	if err != nil {
		t.Fatal(err)
	}
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"inspect", "whatever"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "signing key required") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestDefaultsFollowServiceConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("TICKET_KEY_PREFIX", "relay:tk:")
	t.Setenv("TICKET_ISSUER", "relay-v2")

	root, err := newRootCmd()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"issue", "--message", "hi", "--to", "Bob", "--from", "Alice"})
	if err := root.Execute(); err != nil {
		t.Fatalf("issue: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "relay:tk:") {
		t.Fatalf("store keys: %v", keys)
	}
	codec, err := ticket.NewCodec([]byte(testSecret), ticket.DefaultBypassIssuer)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := codec.Decode(ticket.StripScheme(strings.TrimSpace(out.String())))
	if err != nil {
		t.Fatal(err)
	}
	if claims.IssuedBy() != "relay-v2" {
		t.Errorf("issuer: got %q", claims.IssuedBy())
	}
}
