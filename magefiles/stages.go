//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Stage groups targets that run one pipeline stage over the default
// project directories with the freshly built CLI.
type Stage mg.Namespace

// agent builds and runs the CLI. PDF_CLEANUP_AGENT_* variables pass through.
func agent(args ...string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, args...)
}

// Segment splits every PDF in data/pdf into section text files.
func (Stage) Segment() error { return agent("segment") }

// Clean sends the section files through the model.
func (Stage) Clean() error { return agent("clean") }

// Postprocess tidies the cleaned Markdown and promotes headings.
func (Stage) Postprocess() error { return agent("postprocess") }

// Vtt exports each book's Markdown as a Foundry VTT journal.
func (Stage) Vtt() error { return agent("vtt") }

// All runs every configured step for every PDF in data/pdf.
func (Stage) All() error { return agent("run") }

// Models checks the local model server.
func (Stage) Models() error { return agent("models") }
