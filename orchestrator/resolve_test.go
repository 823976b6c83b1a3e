/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolvePath(t *testing.T) {
	src := &fakeSource{files: map[string]string{
		"src/S1118/Util.cs":         "",
		"src/S1118/Helpers.cs":      "",
		"src/S1118/Deep/Helpers.cs": "",
		"src/S3776/Util.cs":         "",
	}}

	tests := []struct {
		name      string
		requested string
		want      Resolution
	}{{
		name:      "unique base name",
		requested: "Services/Util.cs",
		want:      Resolution{Found: true, Path: "src/S1118/Util.cs", Candidates: 1},
	}, {
		name:      "case and backslashes",
		requested: `Services\UTIL.CS`,
		want:      Resolution{Found: true, Path: "src/S1118/Util.cs", Candidates: 1},
	}, {
		name:      "ambiguous",
		requested: "Helpers.cs",
		want:      Resolution{Candidates: 2},
	}, {
		name:      "no match",
		requested: "Missing.cs",
		want:      Resolution{},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(context.Background(), src, ".cs", "S1118", tt.requested)
			if err != nil {
				t.Fatalf("ResolvePath() = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolvePath() (-want, +got):\n%s", diff)
			}
		})
	}
}
