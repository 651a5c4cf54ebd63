// Package seed ships the version-1 question catalog so a fresh install
// can serve assessments without any authoring step.
package seed

import (
	"context"
	"errors"

	"github.com/operating-strengths/assessment-api/internal/assessment"
	"github.com/operating-strengths/assessment-api/internal/team"
)

// VersionName identifies the built-in catalog.
const VersionName = "v1"

// EnsureCatalog installs the built-in catalog as the active version when
// the store has none. Safe to call on every boot.
func EnsureCatalog(ctx context.Context, store team.Store) error {
	if _, err := store.ActiveVersion(ctx); err == nil {
		return nil
	} else if !errors.Is(err, team.ErrNotFound) {
		return err
	}
	_, err := store.InsertVersion(ctx, VersionName, Questions(), true)
	return err
}

// Questions returns the 36-item catalog: 4 statements per
// (dimension, subscale) cell. Reverse-coded items are statements where
// agreement signals a weakness.
func Questions() []assessment.Question {
	type item struct {
		text     string
		reversed bool
	}
	cells := []struct {
		dimension assessment.Dimension
		subscale  assessment.Subscale
		items     [4]item
	}{
		{assessment.DimAlignment, assessment.SubPersonalDiscipline, [4]item{
			{text: "I can state our firm's top three priorities without looking them up."},
			{text: "Before starting new work, I check how it connects to our stated goals."},
			{text: "I often discover that work I've done wasn't actually a priority.", reversed: true},
			{text: "I revisit my own goals regularly to keep them in line with the firm's direction."},
		}},
		{assessment.DimAlignment, assessment.SubCollectiveSystems, [4]item{
			{text: "Our planning process makes it clear which initiatives matter most."},
			{text: "When priorities change, the change is communicated before work is affected."},
			{text: "Different groups here routinely pull in different directions.", reversed: true},
			{text: "We have a working forum where conflicting priorities get resolved."},
		}},
		{assessment.DimAlignment, assessment.SubObservableBehaviors, [4]item{
			{text: "In meetings, people connect their proposals to the firm's goals."},
			{text: "Colleagues decline low-priority requests rather than quietly absorbing them."},
			{text: "I see people duplicate each other's work without realizing it.", reversed: true},
			{text: "When direction shifts, teams visibly adjust what they are working on."},
		}},
		{assessment.DimExecution, assessment.SubPersonalDiscipline, [4]item{
			{text: "I break commitments into concrete next steps before I start."},
			{text: "I finish the things I start within the window I promised."},
			{text: "My work regularly stalls waiting on decisions I could have sought earlier.", reversed: true},
			{text: "I track my open commitments somewhere other than my memory."},
		}},
		{assessment.DimExecution, assessment.SubCollectiveSystems, [4]item{
			{text: "Our projects have owners, deadlines, and a visible status."},
			{text: "Handoffs between teams include everything the receiving team needs."},
			{text: "Work here frequently dies in the gap between teams.", reversed: true},
			{text: "We have a reliable rhythm of checkpoints that catches slippage early."},
		}},
		{assessment.DimExecution, assessment.SubObservableBehaviors, [4]item{
			{text: "Meetings here end with named owners and dates."},
			{text: "People flag blockers as soon as they hit them."},
			{text: "Deadlines around here are treated as suggestions.", reversed: true},
			{text: "When something slips, the plan is revised rather than ignored."},
		}},
		{assessment.DimAccountability, assessment.SubPersonalDiscipline, [4]item{
			{text: "When I miss a commitment, I say so before anyone has to ask."},
			{text: "I ask for feedback on the quality of my work, not just its completion."},
			{text: "I tend to explain misses by pointing at circumstances outside my control.", reversed: true},
			{text: "I hold myself to the same standard I expect from colleagues."},
		}},
		{assessment.DimAccountability, assessment.SubCollectiveSystems, [4]item{
			{text: "Every significant decision here has a single named owner."},
			{text: "We review outcomes against what was promised, not just effort."},
			{text: "Repeated underperformance carries no real consequence here.", reversed: true},
			{text: "Our review cadence surfaces problems while they are still fixable."},
		}},
		{assessment.DimAccountability, assessment.SubObservableBehaviors, [4]item{
			{text: "Colleagues follow through on what they commit to in front of the group."},
			{text: "People here give each other direct feedback about missed commitments."},
			{text: "Difficult conversations about performance get postponed indefinitely.", reversed: true},
			{text: "When things go wrong, the conversation is about fixing, not blaming."},
		}},
	}

	out := make([]assessment.Question, 0, assessment.CatalogSize)
	order := 1
	for _, cell := range cells {
		for _, it := range cell.items {
			out = append(out, assessment.Question{
				Order:      order,
				Text:       it.text,
				Dimension:  cell.dimension,
				Subscale:   cell.subscale,
				IsReversed: it.reversed,
			})
			order++
		}
	}
	return out
}
