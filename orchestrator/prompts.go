/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"strconv"

	"chainguard.dev/smellfix/agents/promptbuilder"
	"chainguard.dev/smellfix/analysis"
)

// SystemPrompt frames every fix request.
const SystemPrompt = "You are a Software Developer tasked with fixing Code Smells. You will receive a description for a code smell that should be fixed in a specific class, as well as the content of other possibly relevant classes. " +
	"Here are some rules that must be followed when fixing the code smell:\n" +
	"1. Respond only in the provided JSON format\n" +
	"2. Do not change anything else in the code, just fix the issue that is described in the request. Do not add any comments, explanations or unnecessary whitespace to the code. Do not change the formatting of the code.\n" +
	"3. Use the provided file paths in the responses to identify the files.\n" +
	"4. The response should contain the *complete* code for the files that should be changed.\n" +
	"5. Ensure that the code is still valid after your changes and compiles without errors. Do not change the code in a way that would break the compilation or introduce new issues."

var issuePrompt = promptbuilder.MustNewPrompt(`# Approach
To fix the code smell, please follow these steps:
1. **Understand the Code Smell**: Read the description of the code smell to understand what it is and why it is considered a problem.
2. **Analyze the Code**: Look at the provided code to identify where the code smell occurs.
3. **Propose a Fix**: Suggest a code change that addresses the code smell while maintaining the original functionality of the code.

# Code Smell Details

**Programming Language**: {{language}}
**Analysis Rule Key**: {{rule_key}}
**Rule Title**: {{title}}
**File Path**: {{file_path}}
**Affected Lines**: {{start_line}}-{{end_line}}
**Code Smell Description**: {{description}}`)

var languages = map[string]string{
	"cs":     "C#",
	"java":   "Java",
	"py":     "Python",
	"js":     "JavaScript",
	"ts":     "TypeScript",
	"go":     "Go",
	"kotlin": "Kotlin",
}

// LanguageName returns the display name of an analysis language key.
func LanguageName(key string) string {
	if name, ok := languages[key]; ok {
		return name
	}
	return key
}

// issueDetails binds one issue and its rule into the fix prompt.
type issueDetails struct {
	language string
	issue    analysis.Issue
	rule     analysis.Rule
}

var _ promptbuilder.Bindable = issueDetails{}

func (d issueDetails) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	for name, value := range map[string]string{
		"language":    LanguageName(d.language),
		"rule_key":    string(d.rule.ID),
		"title":       d.rule.Title,
		"file_path":   d.issue.FilePath,
		"start_line":  strconv.Itoa(d.issue.Range.StartLine),
		"end_line":    strconv.Itoa(d.issue.Range.EndLine),
		"description": d.rule.Description,
	} {
		var err error
		if p, err = p.BindText(name, value); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// IssuePrompt renders the per-issue fix request.
func IssuePrompt(language string, issue analysis.Issue, rule analysis.Rule) (string, error) {
	return promptbuilder.Render(issuePrompt, issueDetails{language: language, issue: issue, rule: rule})
}

// CommitMessage fills {{ID}}, {{TITLE}} and {{FILE_NAME}} in template.
func CommitMessage(template string, issue analysis.Issue, rule analysis.Rule) string {
	return promptbuilder.Substitute(template, map[string]string{
		"ID":        string(rule.ID),
		"TITLE":     rule.Title,
		"FILE_NAME": issue.FilePath,
	})
}
