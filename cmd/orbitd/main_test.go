package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCatalog = `ISS (ZARYA)
1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009
2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01
GPS BIIR-13
1 28474U 04045A   24100.50000000 -.00000018  00000-0  00000+0 0  9999
2 28474  55.0000 120.0000 0050000 200.0000 160.0000  2.00563000    00
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.txt")
	if err := os.WriteFile(path, []byte(testCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPropagateCommandJSON(t *testing.T) {
	var out bytes.Buffer
	err := runPropagate(&out, propagateFlags{
		tlePath:   writeCatalog(t),
		timestamp: "2024-04-10T12:30:00Z",
		frame:     "teme",
		format:    "json",
	})
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}

	var resp struct {
		Satellites []struct {
			Name       string             `json:"name"`
			PositionKm map[string]float64 `json:"position_km"`
			Error      string             `json:"error"`
		} `json:"satellites"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(resp.Satellites) != 2 {
		t.Fatalf("got %d satellites, want 2", len(resp.Satellites))
	}
	if resp.Satellites[0].Name != "ISS (ZARYA)" || resp.Satellites[1].Name != "GPS BIIR-13" {
		t.Errorf("order/names = %q, %q", resp.Satellites[0].Name, resp.Satellites[1].Name)
	}
	for _, s := range resp.Satellites {
		if s.Error != "" || len(s.PositionKm) != 3 {
			t.Errorf("%s: %+v", s.Name, s)
		}
	}
}

func TestPropagateCommandTable(t *testing.T) {
	var out bytes.Buffer
	err := runPropagate(&out, propagateFlags{
		tlePath:   writeCatalog(t),
		timestamp: "2024-04-10T12:30:00Z",
		frame:     "ecef",
		geodetic:  true,
		observer:  "40.0,-105.0,1.6",
		format:    "table",
	})
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	text := out.String()
	for _, want := range []string{"ISS (ZARYA)", "25544", "lat=", "az=", "2 ok, 0 failed, ecef frame"} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q:\n%s", want, text)
		}
	}
}

func TestPropagateCommandErrors(t *testing.T) {
	path := writeCatalog(t)
	tests := []struct {
		name  string
		flags propagateFlags
	}{
		{"bad time", propagateFlags{tlePath: path, timestamp: "soon", format: "json"}},
		{"bad format", propagateFlags{tlePath: path, timestamp: "2024-04-10T12:00:00Z", format: "xml"}},
		{"bad observer", propagateFlags{tlePath: path, observer: "north", format: "json"}},
		{"missing file", propagateFlags{tlePath: filepath.Join(t.TempDir(), "none.txt"), format: "json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runPropagate(&bytes.Buffer{}, tt.flags); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseObserver(t *testing.T) {
	obs, err := parseObserver("51.5, -0.1")
	if err != nil {
		t.Fatal(err)
	}
	if obs.AltKm != 0 {
		t.Errorf("alt = %v, want 0", obs.AltKm)
	}
	if _, err := parseObserver("91,0"); err == nil {
		t.Error("latitude 91 accepted")
	}
	if _, err := parseObserver("1,2,3,4"); err == nil {
		t.Error("four fields accepted")
	}
}

func TestCompareCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"compare", "--tle", writeCatalog(t), "--time", "2024-04-10T12:30:00Z", "--max-km", "10", "-v"})
	if err := root.Execute(); err != nil {
		t.Fatalf("compare: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "2 compared") {
		t.Errorf("summary missing:\n%s", out.String())
	}
}
