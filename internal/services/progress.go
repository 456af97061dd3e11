package services

const (
	xpPerLevel         = 500
	integrityXPPenalty = 10
)

// QuizXP is the experience awarded for a submitted quiz. Each integrity flag
// costs a fixed penalty and the award never goes negative.
func QuizXP(score, integrityFlags int) int {
	xp := score - integrityFlags*integrityXPPenalty
	if xp < 0 {
		return 0
	}
	return xp
}

func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/xpPerLevel
}
