package server

import "testing"

// votingGame returns a five-player game in the voting phase where p1, p2 and
// p3 have submitted, leaving p4 and p5 as the electorate.
func votingGame() *Game {
	game := newRoundGame(phaseVoting, "Ada", "Ben", "Cat", "Dee", "Eli")
	round := currentRound(game)
	for _, playerID := range []string{"p1", "p2", "p3"} {
		round.Submissions = append(round.Submissions, SubmissionEntry{
			ID:              "sub-" + playerID,
			PlayerID:        playerID,
			PromptCardID:    "prompt-1",
			ResponseCardIDs: []string{cardIDForPlayer(playerID, 0)},
		})
	}
	return game
}

func TestVoteVerdictAccepts(t *testing.T) {
	game := votingGame()
	round := currentRound(game)
	v := voteVerdict(game, round, voteRequest{PlayerID: "p4", SubmissionID: "sub-p1"})
	if !v.ok() {
		t.Fatalf("expected accept, got %v", v.err)
	}
}

func TestVoteVerdictRejections(t *testing.T) {
	game := votingGame()
	round := currentRound(game)
	round.Votes = append(round.Votes, VoteEntry{ID: "vote-1", VoterID: "p4", SubmissionID: "sub-p1"})

	cases := []struct {
		name string
		req  voteRequest
		kind string
	}{
		{"unknown player", voteRequest{PlayerID: "ghost", SubmissionID: "sub-p1"}, errorKindValidation},
		{"duplicate vote", voteRequest{PlayerID: "p4", SubmissionID: "sub-p2"}, errorKindValidation},
		{"unknown submission", voteRequest{PlayerID: "p5", SubmissionID: "sub-missing"}, errorKindValidation},
		{"own submission", voteRequest{PlayerID: "p1", SubmissionID: "sub-p1"}, errorKindValidation},
		{"submitter voting", voteRequest{PlayerID: "p2", SubmissionID: "sub-p1"}, errorKindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := voteVerdict(game, round, tc.req)
			if v.ok() {
				t.Fatalf("expected rejection")
			}
			if classifyError(v.err) != tc.kind {
				t.Fatalf("expected %s error, got %v", tc.kind, v.err)
			}
		})
	}
}

func TestVoteVerdictWrongPhase(t *testing.T) {
	game := votingGame()
	game.Phase = phaseSubmission
	round := currentRound(game)
	v := voteVerdict(game, round, voteRequest{PlayerID: "p4", SubmissionID: "sub-p1"})
	if v.ok() || classifyError(v.err) != errorKindGameState {
		t.Fatalf("expected game-state rejection, got %v", v.err)
	}
}

func TestEligibleVoters(t *testing.T) {
	game := votingGame()
	round := currentRound(game)
	voters := eligibleVoters(game, round)
	if len(voters) != 2 || voters[0] != "p4" || voters[1] != "p5" {
		t.Fatalf("expected p4 and p5 as electorate, got %v", voters)
	}

	// Disconnected players drop out of the electorate.
	player, _ := findPlayer(game, "p5")
	player.Connected = false
	voters = eligibleVoters(game, round)
	if len(voters) != 1 || voters[0] != "p4" {
		t.Fatalf("expected only p4, got %v", voters)
	}
}

func TestResolveRoundScoresTieAwardsAll(t *testing.T) {
	game := votingGame()
	round := currentRound(game)
	round.Votes = append(round.Votes,
		VoteEntry{ID: "vote-1", VoterID: "p4", SubmissionID: "sub-p1"},
		VoteEntry{ID: "vote-2", VoterID: "p5", SubmissionID: "sub-p3"},
	)

	resolveRoundScores(game, round)
	if !round.Resolved {
		t.Fatalf("expected round marked resolved")
	}
	scores := map[string]int{}
	for _, player := range game.Players {
		scores[player.ID] = player.Score
	}
	if scores["p1"] != 1 || scores["p3"] != 1 || scores["p2"] != 0 {
		t.Fatalf("expected a point for each tied submitter, got %v", scores)
	}
	winners := roundWinners(game, round)
	if len(winners) != 2 {
		t.Fatalf("expected two winners, got %v", winners)
	}

	// A second fire is a no-op.
	resolveRoundScores(game, round)
	for _, player := range game.Players {
		if player.Score != scores[player.ID] {
			t.Fatalf("expected idempotent resolution, got %d for %s", player.Score, player.ID)
		}
	}
}

func TestResolveRoundScoresNoVotes(t *testing.T) {
	game := votingGame()
	round := currentRound(game)

	resolveRoundScores(game, round)
	if maxScore(game) != 0 {
		t.Fatalf("expected no scores with zero votes")
	}
	if winners := roundWinners(game, round); winners != nil {
		t.Fatalf("expected no winners, got %v", winners)
	}
}

func TestResolveRoundOnlyOnce(t *testing.T) {
	srv := New(nil, testConfig())
	game := votingGame()
	srv.store.games[game.ID] = game

	_, resolved, err := srv.resolveRound(game.ID)
	if err != nil || !resolved {
		t.Fatalf("expected resolution, got resolved=%v err=%v", resolved, err)
	}
	if game.Phase != phaseResults {
		t.Fatalf("expected results phase, got %s", game.Phase)
	}

	// The racing loser sees the phase already moved and backs off.
	_, resolved, err = srv.resolveRound(game.ID)
	if err != nil {
		t.Fatalf("expected duplicate resolution to be benign, got %v", err)
	}
	if resolved {
		t.Fatalf("expected second resolution to be a no-op")
	}
}

func TestCastVoteReportsCompletion(t *testing.T) {
	srv := New(nil, testConfig())
	game := votingGame()
	srv.store.games[game.ID] = game

	_, _, complete, err := srv.castVote(game.ID, voteRequest{PlayerID: "p4", SubmissionID: "sub-p1"})
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	if complete {
		t.Fatalf("expected electorate incomplete after one vote")
	}
	_, entry, complete, err := srv.castVote(game.ID, voteRequest{PlayerID: "p5", SubmissionID: "sub-p2"})
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	if entry == nil || !complete {
		t.Fatalf("expected final vote to complete the electorate")
	}
	round := currentRound(game)
	if findSubmission(round, "sub-p2").VoteCount != 1 {
		t.Fatalf("expected tally bump on the target submission")
	}
}
