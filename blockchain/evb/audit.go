package evb

import (
	"github.com/google/uuid"

	"vote-ledger/anonymizer"
	"vote-ledger/models"
)

// ExportForAudit snapshots the chain without vote payloads and with voter
// hashes masked down to a short prefix.
func (e *EVB) ExportForAudit() *models.AuditExport {
	chain := e.snapshot()

	export := &models.AuditExport{
		ExportID:    uuid.New().String(),
		GeneratedAt: e.now().UTC(),
		BlockCount:  len(chain),
		TipHash:     chain[len(chain)-1].Hash,
		Blocks:      make([]models.AuditBlock, len(chain)),
	}
	for i, b := range chain {
		export.Blocks[i] = models.AuditBlock{
			Index:        b.Index,
			Timestamp:    b.Timestamp,
			Hash:         b.Hash,
			PreviousHash: b.PreviousHash,
			VoterHash:    anonymizer.MaskVoterHash(b.VoterHash, anonymizer.DefaultVisiblePrefix),
			Difficulty:   b.Difficulty,
		}
	}
	return export
}
