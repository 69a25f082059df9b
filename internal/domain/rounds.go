package domain

// StartQuestionIndex returns the 0-based index into the quiz's flat question
// sequence at which a player's block for the given round begins. The turn
// owner plays the block at (round-1)*perRound; the off-turn player's block is
// offset by one more block of perRound questions. Rounds are 1-based.
func StartQuestionIndex(round, perRound int, turnOwner bool) int {
	start := (round - 1) * perRound
	if !turnOwner {
		start += perRound
	}
	return start
}

// QuestionAt resolves a flat index against the quiz. Indexes past the end
// mean the quiz ran out of questions before the round cap was reached; the
// match ends early in that case.
func QuestionAt(quiz Quiz, index int) (Question, bool) {
	if index < 0 || index >= len(quiz.Questions) {
		return Question{}, false
	}
	return quiz.Questions[index], true
}

// MatchShouldEnd reports whether a turn handoff completes the match: either
// the incoming round number exceeds the round cap, or the next player has
// already answered every question the quiz has.
func MatchShouldEnd(nextRound, maxRounds, answeredByNext, totalQuestions int) bool {
	return nextRound > maxRounds || answeredByNext >= totalQuestions
}

// NextRound applies the round boundary rule: the round number advances only
// when player2 hands the turn back, closing a full player1+player2 pair.
func NextRound(m *Match) int {
	if m.CurrentTurnPlayer == m.Player2ID {
		return m.RoundNumber + 1
	}
	return m.RoundNumber
}

// RoundScore derives a block score from ledger rows: correct answers times
// the per-correct reward. The ledger is the source of truth; clients only
// mirror this number.
func RoundScore(answers []PlayerAnswer, pointsPerCorrect int) int {
	score := 0
	for _, a := range answers {
		if a.IsCorrect {
			score += pointsPerCorrect
		}
	}
	return score
}
