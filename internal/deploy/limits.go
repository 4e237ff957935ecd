package deploy

// Discord upload ceilings by guild premium (boost) tier. Tiers 0 and 1 share
// the base ceiling; tier 2 starts at 7 boosts and tier 3 at 14.
const (
	ceilingBase  int64 = 8_000_000
	ceilingTier2 int64 = 50_000_000
	ceilingTier3 int64 = 100_000_000

	tier2Boosts = 7
	tier3Boosts = 14
)

// AttachmentCeiling returns the largest single-file upload size a guild with
// the given boost count accepts. Attachments above the ceiling are listed as
// URLs instead of uploaded.
func AttachmentCeiling(boostCount int) int64 {
	switch {
	case boostCount >= tier3Boosts:
		return ceilingTier3
	case boostCount >= tier2Boosts:
		return ceilingTier2
	default:
		return ceilingBase
	}
}
