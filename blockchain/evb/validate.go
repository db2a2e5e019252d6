package evb

import "vote-ledger/models"

// ValidateChain replays linkage, hashing and proof-of-work over blocks and
// reports the first failure. Block 0 is only checked for its index: genesis is
// a trust anchor, not a mined block.
func ValidateChain(blocks []*models.Block) models.ValidationResult {
	if len(blocks) == 0 {
		return invalid(-1, models.ReasonEmptyChain)
	}
	if blocks[0].Index != 0 {
		return invalid(0, models.ReasonInvalidGenesis)
	}

	for i := 1; i < len(blocks); i++ {
		current, previous := blocks[i], blocks[i-1]

		if current.Index != previous.Index+1 {
			return invalid(i, models.ReasonIndexDiscontinuity)
		}
		if current.PreviousHash != previous.Hash {
			return invalid(i, models.ReasonHashChainBroken)
		}
		if current.CalculateHash() != current.Hash {
			return invalid(i, models.ReasonHashMismatch)
		}
		if !current.HasValidProof() {
			return invalid(i, models.ReasonInvalidProofOfWork)
		}
		if current.Timestamp < previous.Timestamp {
			return invalid(i, models.ReasonTimestampViolation)
		}
	}

	return models.ValidationResult{IsValid: true, FirstInvalidIndex: -1}
}

func invalid(index int, reason string) models.ValidationResult {
	return models.ValidationResult{FirstInvalidIndex: index, Reason: reason}
}
