/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"path"
	"strings"

	"chainguard.dev/smellfix/sourcecode"
)

// Resolution is the outcome of looking for the file a model meant when the
// path it returned does not exist.
type Resolution struct {
	Found bool
	Path  string
	// Candidates is how many files share the base name.
	Candidates int
}

// ResolvePath searches the files of a rule for one whose base name matches
// the base name of requested, ignoring case. It resolves only when exactly
// one file matches.
func ResolvePath(ctx context.Context, files sourcecode.Lister, extension, ruleFolder, requested string) (Resolution, error) {
	all, err := files.GetAllFiles(ctx, extension, ruleFolder)
	if err != nil {
		return Resolution{}, err
	}
	base := path.Base(strings.ReplaceAll(requested, `\`, "/"))

	var res Resolution
	for _, f := range all {
		if strings.EqualFold(path.Base(f.Path), base) {
			res.Candidates++
			res.Path = f.Path
		}
	}
	if res.Candidates != 1 {
		res.Path = ""
		return res, nil
	}
	res.Found = true
	return res, nil
}
