package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"huntbook/internal/catalog"
	"huntbook/internal/hunt"
)

const deviceID = "4899b38f0d6a46a4be5b1b25a2c6e3b04f7d8a91"

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Defs: []*catalog.Definition{
		{
			Name:        "Suspicious <script> loads",
			Query:       "DeviceEvents | where DeviceId == \"{DeviceId}\" and Timestamp > ago({TimeFrame})",
			Source:      "https://attack.mitre.org/techniques/T1059/",
			ResultCount: 3,
		},
		{
			Name:        "Rare services",
			Query:       "DeviceEvents | where 1 < 2",
			Source:      "internal playbook, rev 4",
			ResultCount: 0,
		},
	}}
}

func testContext() hunt.Context {
	return hunt.Context{DeviceID: deviceID, TimeFrame: "7d"}
}

func render(t *testing.T) string {
	t.Helper()
	data, err := Render(testCatalog(), hunt.KindDevice, testContext(), time.Unix(1754006400, 0))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(data)
}

func TestRenderEscapesMarkup(t *testing.T) {
	out := render(t)
	if strings.Contains(out, "<script>") {
		t.Error("query name markup was not escaped")
	}
	if !strings.Contains(out, "Suspicious &lt;script&gt; loads") {
		t.Errorf("escaped name missing:\n%s", out)
	}
	// Query text is substituted, then shown preformatted with < > escaped.
	if !strings.Contains(out, deviceID) {
		t.Error("substituted device id missing from query cell")
	}
	if !strings.Contains(out, "1 &lt; 2") {
		t.Error("comparison operator in query text was not escaped")
	}
	if strings.Contains(out, "{DeviceId}") || strings.Contains(out, "{TimeFrame}") {
		t.Error("placeholder survived into the report")
	}
}

func TestRenderBadgeStyles(t *testing.T) {
	out := render(t)
	if !strings.Contains(out, `<span class="badge hit">3</span>`) {
		t.Errorf("non-zero badge missing:\n%s", out)
	}
	if !strings.Contains(out, `<span class="badge zero">0</span>`) {
		t.Errorf("zero badge missing:\n%s", out)
	}
}

func TestRenderSourceLinkVsPlainText(t *testing.T) {
	out := render(t)
	if !strings.Contains(out, `<a href="https://attack.mitre.org/techniques/T1059/">`) {
		t.Errorf("URL source not rendered as link:\n%s", out)
	}
	if strings.Contains(out, `<a href="internal playbook`) {
		t.Error("free-text source rendered as link")
	}
	if !strings.Contains(out, "internal playbook, rev 4") {
		t.Error("free-text source missing")
	}
}

func TestRenderAllZeroHitsStillWellFormed(t *testing.T) {
	cat := testCatalog()
	for _, d := range cat.Defs {
		d.ResultCount = 0
	}
	data, err := Render(cat, hunt.KindDevice, testContext(), time.Now())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(data)
	for _, want := range []string{"<!doctype html>", "</table>", "</html>"} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(out, `badge hit`) {
		t.Error("zero-hit report contains a hit badge")
	}
}

func TestWriteCreatesDirectoryAndPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Reports")
	ctx := hunt.Context{UserPrincipalName: "alice@corp.example", TimeFrame: "7d"}

	path, err := Write(testCatalog(), hunt.KindUser, ctx, dir, time.Now())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := filepath.Join(dir, "User-ExecutedQueries-alice@corp.example.html")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file not written: %v", err)
	}
}
