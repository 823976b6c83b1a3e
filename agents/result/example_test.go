/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result_test

import (
	"errors"
	"fmt"

	"chainguard.dev/smellfix/agents/result"
)

// ExampleRecover shows prose and raw line breaks being cleaned up.
func ExampleRecover() {
	cleaned, ok := result.Recover("Sure! {\"code\": \"a\nb\"} Hope that helps.")
	fmt.Println(ok)
	fmt.Println(cleaned)

	// Output:
	// true
	// {"code": "a\nb"}
}

// ExampleDecode shows decoding a fenced answer into a typed value.
func ExampleDecode() {
	type answer struct {
		Files []string `json:"files"`
	}

	text := "```json\n{\"files\": [\"main.go\"]}\n```"
	a, err := result.Decode[answer](text)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(a.Files)

	// Output:
	// [main.go]
}

// ExampleDecode_unrecoverable shows the error returned for plain prose.
func ExampleDecode_unrecoverable() {
	type answer struct {
		Files []string `json:"files"`
	}

	_, err := result.Decode[answer]("I could not find anything to fix.")
	fmt.Println(errors.Is(err, result.ErrUnrecoverable))

	// Output:
	// true
}
