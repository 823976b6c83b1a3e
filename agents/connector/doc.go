/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package connector runs the request lifecycle shared by every model vendor.

A Connector pairs one llm.Model with the llm.Adapter that speaks its vendor
API. GetResponse checks the model is supported, opens a ledger request, and
then repeats build, POST, parse and decode under the connector retry policy:

	c, err := connector.New(llm.ClaudeHaiku3, adapter,
		connector.WithBaseURL("https://api.anthropic.com/"),
		connector.WithHTTPClient(httpretry.New("anthropic").Client(10*time.Minute)),
		connector.WithLedger(ledger.ForRun(store, runID)),
	)
	fix, err := c.GetResponse(ctx, prompt)

Usage reported by failed attempts is written to the ledger before the next
attempt starts. The ledger record is closed as Succeeded or Failed before
GetResponse returns, including on cancellation.
*/
package connector
