package devicetest

import (
	"context"
	"testing"

	"github.com/buckleypaul/boardbridge/internal/device"
)

// CheckContract runs the capability checks every adapter must pass. It
// only issues calls that are safe against the given adapter: compiles touch
// no hardware, and uploads are attempted only when the adapter claims it
// cannot upload.
func CheckContract(t testing.TB, a device.Adapter) {
	t.Helper()
	ctx := context.Background()
	caps := a.Capabilities()

	if !caps.CanListPorts {
		if ports := a.ListPorts(ctx); len(ports) != 0 {
			t.Errorf("CanListPorts is false but ListPorts returned %d ports", len(ports))
		}
	}

	checkResult(t, "Compile", a.Compile(ctx, "", "arduino:avr:uno"))

	if !caps.CanUpload {
		fired := false
		res := a.Upload(ctx, "/dev/null", "", "arduino:avr:uno", func(device.ProgressEvent) { fired = true })
		if res.Success {
			t.Errorf("CanUpload is false but Upload succeeded: %+v", res)
		}
		checkResult(t, "Upload", res)
		if fired && !caps.SupportsProgress {
			t.Error("progress fired although SupportsProgress is false")
		}
	}

	if !device.ManagesCores(a) {
		if _, err := a.InstallCore(ctx, "arduino:avr"); err == nil {
			t.Error("InstallCore must fail on a platform without core management")
		}
		if status := a.CheckCoreStatus(ctx, "arduino:avr:uno"); status.Installed || status.Bundled {
			t.Errorf("expected all-false status without core management, got %+v", status)
		}
	}
}

func checkResult(t testing.TB, op string, res device.UploadResult) {
	t.Helper()
	if res.Success && (res.Message == "" || res.Error != "") {
		t.Errorf("%s: successful result must carry only a message: %+v", op, res)
	}
	if !res.Success && (res.Error == "" || res.Message != "") {
		t.Errorf("%s: failed result must carry only an error: %+v", op, res)
	}
}
