// Command ledgerctl runs an in-process election against the vote ledger and
// renders what happened: receipts, statistics, validation, audit and tally.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"vote-ledger/anonymizer"
	"vote-ledger/config"
	"vote-ledger/hashing"
	"vote-ledger/logs"
	"vote-ledger/models"
	"vote-ledger/service"
	"vote-ledger/storage"
)

type options struct {
	configPath string
	voters     int
	revotes    int
	choices    string
	difficulty int
	encoder    string
	tamper     int
	saveDir    string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	flag.IntVar(&o.voters, "voters", 5, "Number of distinct voters")
	flag.IntVar(&o.revotes, "revotes", 1, "Number of voters who vote a second time")
	flag.StringVar(&o.choices, "choices", "alice,bob,carol", "Comma separated ballot choices")
	flag.IntVar(&o.difficulty, "difficulty", -1, "Override the configured difficulty")
	flag.StringVar(&o.encoder, "encoder", "", "Override the configured encoder (RSA2048 or ECIES)")
	flag.IntVar(&o.tamper, "tamper", 0, "Block index to tamper with in a copy of the chain before validation (0 = none)")
	flag.StringVar(&o.saveDir, "save", "", "Directory to write the audit export to")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()
	logs.SetLevel("error")

	if err := run(o); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.difficulty >= 0 {
		cfg.Difficulty = o.difficulty
	}
	if o.encoder != "" {
		cfg.Encoder = o.encoder
	}

	var store *storage.AuditStore
	if o.saveDir != "" {
		if store, err = storage.New(o.saveDir); err != nil {
			return err
		}
	}
	vs, err := service.NewVotingService(cfg, store)
	if err != nil {
		return err
	}

	choices := strings.Split(o.choices, ",")
	pterm.DefaultSection.Printfln("Casting %d votes at difficulty %d (%s)", o.voters+o.revotes, cfg.Difficulty, cfg.Encoder)

	ctx := context.Background()
	rows := pterm.TableData{{"Voter", "Choice", "Block", "Hash", "Prev", "Attempts", "Mined in"}}
	cast := func(n int) error {
		voterHash := hashing.VoterHash([]byte("voter-" + strconv.Itoa(n)))
		choice := choices[rand.Intn(len(choices))]
		receipt, err := vs.CastVote(ctx, voterHash, &models.VotePayload{Choice: choice, ElectionID: "ledgerctl"})
		if err != nil {
			return fmt.Errorf("vote %d: %w", n, err)
		}
		rows = append(rows, []string{
			anonymizer.MaskVoterHash(voterHash, anonymizer.DefaultVisiblePrefix),
			choice,
			strconv.FormatUint(receipt.BlockIndex, 10),
			anonymizer.Prefix(receipt.Hash, 16),
			receipt.PreviousHashPrefix,
			strconv.Itoa(receipt.Attempts),
			receipt.MiningDuration.Round(time.Microsecond).String(),
		})
		return nil
	}
	for i := 0; i < o.voters; i++ {
		if err := cast(i); err != nil {
			return err
		}
	}
	for i := 0; i < o.revotes && i < o.voters; i++ {
		if err := cast(i); err != nil {
			return err
		}
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	renderStatistics(vs.Statistics())

	shards, err := vs.IssueKeyShards()
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("Election key shards")
	pterm.DefaultBox.WithTitle(fmt.Sprintf("%d of %d required", cfg.ShardThreshold, cfg.ShardCount)).
		Println(strings.Join(shards, "\n"))

	pterm.DefaultSection.Println("Validation")
	if o.tamper > 0 {
		chain := vs.Chain()
		if o.tamper >= len(chain) {
			return fmt.Errorf("cannot tamper with block %d: chain has %d blocks", o.tamper, len(chain))
		}
		chain[o.tamper].EncryptedVote += "00"
		pterm.Warning.Printfln("Tampered with the encrypted vote of block %d in a downloaded copy", o.tamper)
		if copyResult := vs.VerifyChain(chain); copyResult.IsValid {
			pterm.Error.Println("Tampered copy passed verification")
		} else {
			pterm.Success.Printfln("Tampered copy rejected at block %d: %s", copyResult.FirstInvalidIndex, copyResult.Reason)
		}
	}

	result := vs.ValidateChain()
	if result.IsValid {
		pterm.Success.Println("Chain is valid")
	} else {
		pterm.Error.Printfln("Chain invalid at block %d: %s", result.FirstInvalidIndex, result.Reason)
		pterm.Warning.Println("Voting session halted")
	}

	if store != nil {
		export, path, err := vs.SaveAudit()
		if err != nil {
			return err
		}
		pterm.Info.Printfln("Audit export %s (%d blocks) written to %s", export.ExportID, export.BlockCount, path)
	}

	if !result.IsValid {
		return nil
	}

	results, err := vs.Tally(shards[:cfg.ShardThreshold])
	if err != nil {
		return err
	}
	renderResults(results)
	return nil
}

func renderStatistics(s models.Statistics) {
	pterm.DefaultSection.Println("Statistics")
	integrity := pterm.LightGreen("intact")
	if !s.ChainIntegrity {
		integrity = pterm.LightRed("broken")
	}
	pterm.DefaultBulletList.WithItems([]pterm.BulletListItem{
		{Level: 0, Text: fmt.Sprintf("Blocks: %d", s.TotalBlocks)},
		{Level: 0, Text: fmt.Sprintf("Unique voters: %d", s.UniqueVoters)},
		{Level: 0, Text: fmt.Sprintf("Last block: %s", time.UnixMilli(s.LastBlockTimestamp).UTC().Format(time.RFC3339Nano))},
		{Level: 0, Text: "Integrity: " + integrity},
	}).Render()
}

func renderResults(r *service.VotingResults) {
	pterm.DefaultSection.Println("Results")
	bars := make([]pterm.Bar, 0, len(r.Results))
	for _, choice := range r.Ranking() {
		bars = append(bars, pterm.Bar{Label: choice, Value: r.Results[choice]})
	}
	if err := pterm.DefaultBarChart.WithHorizontal().WithShowValue().WithBars(bars).Render(); err != nil {
		logs.Warn("Failed to render chart: %v", err)
	}
	pterm.Info.Printfln("%d counted, %d skipped, tip %s", r.TotalVotes, r.SkippedVotes, anonymizer.Prefix(r.TipHash, 16))
}
