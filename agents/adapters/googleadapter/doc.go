/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleadapter speaks the Gemini generateContent API.

Gemini is the only vendor with server-side caching. When the connector calls
SetupCaching, the system prompt and all source files are uploaded once with
the genai SDK and every later request references the cache by name:

	a := googleadapter.New(settings)
	c, _ := connector.New(llm.GeminiFlashLite, a, connector.WithBaseURL(googleadapter.DefaultBaseURL))
	c.SetupCaching(ctx)

If the cache cannot be created the adapter inlines the files of the rule
being fixed into each request instead.
*/
package googleadapter
