//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/buckleypaul/boardbridge/internal/companion"
	"github.com/buckleypaul/boardbridge/internal/config"
	"github.com/buckleypaul/boardbridge/internal/detect"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/devicetest"
	"github.com/buckleypaul/boardbridge/internal/logger"
	"github.com/buckleypaul/boardbridge/internal/native"
)

const blink = `void setup() { pinMode(LED_BUILTIN, OUTPUT); }
void loop() { digitalWrite(LED_BUILTIN, HIGH); delay(500); digitalWrite(LED_BUILTIN, LOW); delay(500); }
`

// companionURL returns the running companion's address from the
// environment, or skips the test if it is not set.
func companionURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv(config.CompanionURLEnv)
	if url == "" {
		t.Skip(config.CompanionURLEnv + " not set; skipping integration tests")
	}
	return url
}

func dialNative(t *testing.T) *native.Adapter {
	t.Helper()
	url := companionURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := companion.Dial(ctx, url, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	a := native.New(client, logger.NewTestLogger())
	t.Cleanup(func() { a.Close() })
	return a
}

// TestIntegrationDetectFindsCompanion runs detection against the live
// companion and expects the native adapter.
func TestIntegrationDetectFindsCompanion(t *testing.T) {
	url := companionURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a := detect.Detect(ctx, detect.Options{CompanionURL: url, ProbeTimeout: 5 * time.Second}, logger.NewTestLogger())
	if c, ok := a.(interface{ Close() error }); ok {
		defer c.Close()
	}
	if a.Platform() != device.PlatformNative {
		t.Fatalf("expected native adapter, got %s", a.Platform())
	}
}

// TestIntegrationContract checks the live companion against the same
// contract the simulation adapters satisfy.
func TestIntegrationContract(t *testing.T) {
	devicetest.CheckContract(t, dialNative(t))
}

// TestIntegrationToolchain asserts the companion reports a usable
// arduino-cli and at least one installed core.
func TestIntegrationToolchain(t *testing.T) {
	a := dialNative(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !a.CheckArduinoCLI(ctx) {
		t.Fatal("companion reports arduino-cli unavailable")
	}
	version, err := a.ArduinoCLIVersion(ctx)
	if err != nil {
		t.Fatalf("cli version: %v", err)
	}
	t.Logf("arduino-cli %s", version)

	installed := a.ListInstalledCores(ctx)
	if len(installed) == 0 {
		t.Fatal("expected at least one installed core")
	}
	for _, c := range installed {
		t.Logf("core %s %s", c.ID, c.InstalledVersion)
	}
}

// TestIntegrationCompileBlink compiles a small sketch for the board named
// by BOARDBRIDGE_TEST_FQBN.
func TestIntegrationCompileBlink(t *testing.T) {
	a := dialNative(t)
	fqbn := os.Getenv("BOARDBRIDGE_TEST_FQBN")
	if fqbn == "" {
		t.Skip("BOARDBRIDGE_TEST_FQBN not set; skipping compile")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	res := a.Compile(ctx, blink, fqbn)
	t.Logf("compile: %+v", res)
	if !res.Success {
		t.Fatalf("compile failed at %s: %s", res.Stage, res.Error)
	}
}
