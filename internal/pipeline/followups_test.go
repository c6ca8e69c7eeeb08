package pipeline

import (
	"context"
	"strings"
	"testing"

	"interviewprep/ai/internal/events"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/testhelpers"
)

func followupResponses(generated string) map[models.Stage]respondFunc {
	return map[models.Stage]respondFunc{
		models.StageGenerateFollowup: reply(generated),
	}
}

func TestStreamFollowupsSuccess(t *testing.T) {
	f := newFixture(t, followupResponses("```json\n{\"followup_questions\": [\"How did you test it?\", \"What would you change?\"]}\n```"))
	interview := testhelpers.SeedInterview(t, f.db, "Seeking backend engineer...", "5 years Python...")
	if err := f.store.CommitGenerationResult(context.Background(), interview.ID, []string{"Q1"}, models.StatusQuestionsGenerated); err != nil {
		t.Fatalf("failed to seed questions: %v", err)
	}
	testhelpers.SeedLog(t, f.db, interview.ID, models.RoleInterviewer, "Tell me about a Go service you built.")
	answer := testhelpers.SeedLog(t, f.db, interview.ID, models.RoleCandidate, "I built a payments API.")

	evts := collect(f.orchestrator.StreamFollowups(context.Background(), interview.ID, answer.ID))

	if got := kindsOf(evts); got != "task_start,thought,thought,question_generated,question_generated,task_end" {
		t.Fatalf("unexpected event sequence %s", got)
	}
	second := evts[4].Payload.(events.QuestionGenerated)
	if second.QuestionText != "What would you change?" || second.QuestionOrder != 2 || second.TotalQuestions != 2 {
		t.Fatalf("unexpected generated event %+v", second)
	}
	if end := lastEvent(t, evts).Payload.(events.TaskEnd); end.Status != events.StatusSuccess {
		t.Fatalf("unexpected status %s", end.Status)
	}

	prompt := f.gateway.Prompt(models.StageGenerateFollowup)
	for _, want := range []string{"Tell me about a Go service you built.", "I built a payments API.", "Seeking backend engineer...", "5 years Python..."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("follow-up prompt is missing %q:\n%s", want, prompt)
		}
	}

	if got := questionTexts(t, f.store, interview.ID); len(got) != 1 || got[0] != "Q1" {
		t.Fatalf("follow-ups must not touch the question set, got %v", got)
	}
	if status := interviewStatus(t, f.db, interview.ID); status != models.StatusQuestionsGenerated {
		t.Fatalf("follow-ups must not change the status, got %s", status)
	}
}

func TestStreamFollowupsUsesCachedStageOutputs(t *testing.T) {
	f := newFixture(t, followupResponses(`{"followup_questions": ["Why?"]}`))
	interview := testhelpers.SeedInterview(t, f.db, "Seeking backend engineer...", "5 years Python...")
	answer := testhelpers.SeedLog(t, f.db, interview.ID, models.RoleCandidate, "Because it scaled.")

	f.cache.Set(models.StageAnalyzeJD, "Seeking backend engineer...", "ANALYSED JD")
	f.cache.Set(models.StageParseResume, "5 years Python...", "PARSED RESUME")

	collect(f.orchestrator.StreamFollowups(context.Background(), interview.ID, answer.ID))

	prompt := f.gateway.Prompt(models.StageGenerateFollowup)
	if !strings.Contains(prompt, "ANALYSED JD") || !strings.Contains(prompt, "PARSED RESUME") {
		t.Fatalf("expected cached stage outputs in the prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question not recorded.") {
		t.Fatalf("an answer without any question context should say so:\n%s", prompt)
	}
}

func TestStreamFollowupsNoResults(t *testing.T) {
	f := newFixture(t, followupResponses(`{"followup_questions": []}`))
	interview := testhelpers.SeedInterview(t, f.db, "Seeking backend engineer...", "5 years Python...")
	answer := testhelpers.SeedLog(t, f.db, interview.ID, models.RoleCandidate, "Yes.")

	evts := collect(f.orchestrator.StreamFollowups(context.Background(), interview.ID, answer.ID))

	end, ok := lastEvent(t, evts).Payload.(events.TaskEnd)
	if !ok || end.Status != events.StatusCompletedNoResults {
		t.Fatalf("expected completed_with_no_results, got %s", kindsOf(evts))
	}
}

func TestStreamFollowupsSkipped(t *testing.T) {
	cases := []struct {
		name string
		role models.SpeakerRole
		text string
		code string
	}{
		{name: "interviewer turn", role: models.RoleInterviewer, text: "Any questions?", code: CodeNotCandidateTurn},
		{name: "system turn", role: models.RoleSystem, text: "Recording started", code: CodeNotCandidateTurn},
		{name: "blank answer", role: models.RoleCandidate, text: "   ", code: CodeEmptyCandidateAnswer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, followupResponses(`{"followup_questions": ["Why?"]}`))
			interview := testhelpers.SeedInterview(t, f.db, "Seeking backend engineer...", "5 years Python...")
			entry := testhelpers.SeedLog(t, f.db, interview.ID, tc.role, tc.text)

			evts := collect(f.orchestrator.StreamFollowups(context.Background(), interview.ID, entry.ID))

			if got := kindsOf(evts); got != "task_start,error" {
				t.Fatalf("expected start then error, got %s", got)
			}
			expectErrorEvent(t, evts, tc.code)
			if calls := f.gateway.Calls(); len(calls) != 0 {
				t.Fatalf("expected no model calls, got %v", calls)
			}
		})
	}
}

func TestStreamFollowupsNotFound(t *testing.T) {
	f := newFixture(t, followupResponses(`{"followup_questions": ["Why?"]}`))
	interview := testhelpers.SeedInterview(t, f.db, "Seeking backend engineer...", "5 years Python...")
	other := testhelpers.SeedInterview(t, f.db, "Another role", "Another resume")
	foreign := testhelpers.SeedLog(t, f.db, other.ID, models.RoleCandidate, "Not yours.")

	expectErrorEvent(t, collect(f.orchestrator.StreamFollowups(context.Background(), 999, foreign.ID)), CodeInterviewNotFound)
	expectErrorEvent(t, collect(f.orchestrator.StreamFollowups(context.Background(), interview.ID, 999)), CodeLogNotFound)
	expectErrorEvent(t, collect(f.orchestrator.StreamFollowups(context.Background(), interview.ID, foreign.ID)), CodeLogNotFound)
}

func TestLastQuestion(t *testing.T) {
	snapshot := "Snapshot question"
	interview := &models.Interview{Logs: []models.InterviewLog{
		{ID: 1, SpeakerRole: models.RoleInterviewer, FullDialogueText: "First question"},
		{ID: 2, SpeakerRole: models.RoleCandidate, FullDialogueText: "First answer"},
		{ID: 3, SpeakerRole: models.RoleInterviewer, FullDialogueText: "Second question"},
		{ID: 4, SpeakerRole: models.RoleCandidate, FullDialogueText: "Second answer"},
		{ID: 5, SpeakerRole: models.RoleInterviewer, FullDialogueText: "Later question"},
	}}

	cases := []struct {
		name  string
		entry *models.InterviewLog
		want  string
	}{
		{
			name:  "snapshot wins",
			entry: &models.InterviewLog{ID: 4, QuestionTextSnapshot: &snapshot, Question: &models.Question{QuestionText: "Row question"}},
			want:  "Snapshot question",
		},
		{
			name:  "linked question row",
			entry: &models.InterviewLog{ID: 4, Question: &models.Question{QuestionText: "Row question"}},
			want:  "Row question",
		},
		{
			name:  "nearest earlier interviewer turn",
			entry: &models.InterviewLog{ID: 4},
			want:  "Second question",
		},
		{
			name:  "first answer",
			entry: &models.InterviewLog{ID: 2},
			want:  "First question",
		},
		{
			name:  "answer missing from the loaded logs",
			entry: &models.InterviewLog{ID: 99},
			want:  "Later question",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lastQuestion(interview, tc.entry); got != tc.want {
				t.Fatalf("lastQuestion() = %q, expected %q", got, tc.want)
			}
		})
	}

	if got := lastQuestion(&models.Interview{}, &models.InterviewLog{ID: 1}); got != "Question not recorded." {
		t.Fatalf("unexpected placeholder %q", got)
	}
}
