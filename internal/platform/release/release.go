package release

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
)

// AppVersion is overridden at build time via -ldflags.
var AppVersion = "v0.0.0"

const releaseURL = "https://api.github.com/repos/loopline/concierge/releases/latest"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates compares the running build against the latest published
// release tag and prints a warning when it lags. All failures are silent;
// this is advisory only and must never delay startup.
func CheckForUpdates() {
	client := http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(releaseURL)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := version.NewVersion(AppVersion)
	if err != nil {
		return
	}

	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		fmt.Printf("WARNING: running outdated version %s; latest is %s\n", AppVersion, release.TagName)
	}
}
