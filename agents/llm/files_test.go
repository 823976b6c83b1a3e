/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/smellfix/sourcecode"
)

func TestWithFiles(t *testing.T) {
	got := WithFiles("Fix it.", []sourcecode.SourceFile{
		{Path: "src/S1118/A.cs", Content: "class A {}"},
		{Path: "src/S1118/B.cs", Content: "class B {}"},
	})
	want := "Fix it.\n\n\n# Files\n" +
		"## File Path: src/S1118/A.cs\nContent:\n```\nclass A {}\n```\n" +
		"## File Path: src/S1118/B.cs\nContent:\n```\nclass B {}\n```\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WithFiles (-want, +got):\n%s", diff)
	}
}

func TestSettingsMaxTokens(t *testing.T) {
	if got := (Settings{}).MaxTokens(); got != DefaultMaxOutputTokens {
		t.Errorf("default: got = %d, wanted %d", got, DefaultMaxOutputTokens)
	}
	if got := (Settings{MaxOutputTokens: 1024}).MaxTokens(); got != 1024 {
		t.Errorf("configured: got = %d, wanted 1024", got)
	}
}

type lister struct {
	files  []sourcecode.SourceFile
	err    error
	folder string
}

func (l *lister) GetAllFiles(_ context.Context, _, folder string) ([]sourcecode.SourceFile, error) {
	l.folder = folder
	return l.files, l.err
}

func TestInlineFiles(t *testing.T) {
	p := Prompt{Text: "Fix it.", RuleID: "S1118"}

	got, err := (Settings{}).InlineFiles(context.Background(), p)
	if err != nil || got != "Fix it." {
		t.Errorf("without files: got = %q, %v", got, err)
	}

	l := &lister{files: []sourcecode.SourceFile{{Path: "src/S1118/A.cs", Content: "class A {}"}}}
	got, err = (Settings{Files: l, Extension: ".cs"}).InlineFiles(context.Background(), p)
	if err != nil {
		t.Fatalf("InlineFiles() = %v", err)
	}
	if diff := cmp.Diff(WithFiles("Fix it.", l.files), got); diff != "" {
		t.Errorf("InlineFiles (-want, +got):\n%s", diff)
	}
	if l.folder != "S1118" {
		t.Errorf("folder: got = %q, wanted S1118", l.folder)
	}

	boom := errors.New("boom")
	if _, err := (Settings{Files: &lister{err: boom}}).InlineFiles(context.Background(), p); !errors.Is(err, boom) {
		t.Errorf("InlineFiles() error: got = %v, wanted %v", err, boom)
	}
}
