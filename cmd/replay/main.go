// Command replay verifies recorded client sessions: it streams the JSONL
// session logs, checks the ordering invariants the sync engine guarantees
// (monotonic input sequences, acks that never run ahead of sends, sane
// checkpoints), and prints a per-file summary. With -db it also lists the
// sessions indexed in sqlite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"chunkborne.gg/internal/persistence/sessiondb"
	"chunkborne.gg/internal/persistence/sessionlog"
	"chunkborne.gg/internal/protocol"
)

func main() {
	var (
		sessionPath = flag.String("session", "", "one session log file (.jsonl.zst)")
		dir         = flag.String("dir", "", "directory of session logs (alternative to -session)")
		dbPath      = flag.String("db", "", "optional session index sqlite path")
	)
	flag.Parse()

	if *dbPath != "" {
		if err := listSessions(*dbPath); err != nil {
			fmt.Fprintln(os.Stderr, "session db:", err)
			os.Exit(1)
		}
	}

	var files []string
	switch {
	case *sessionPath != "":
		files = []string{*sessionPath}
	case *dir != "":
		var err error
		files, err = sessionlog.ListFiles(*dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list sessions:", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "no session logs found in", *dir)
			os.Exit(1)
		}
	default:
		if *dbPath == "" {
			fmt.Fprintln(os.Stderr, "missing -session, -dir, or -db")
			os.Exit(2)
		}
		return
	}

	failed := false
	for _, path := range files {
		if err := verifyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func listSessions(path string) error {
	db, err := sessiondb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sessions, err := db.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("session %s url=%s started=%s ended=%s in=%d out=%d corrections=%d resets=%d checkpoints=%d\n",
			s.ID, s.URL, s.StartedAt, s.EndedAt, s.MessagesIn, s.MessagesOut, s.Corrections, s.Resets, s.Checkpoints)
	}
	return nil
}

type fileSummary struct {
	records     int
	inbound     int
	outbound    int
	checkpoints int
	unknownIn   int
	byType      map[string]int

	lastAt     time.Time
	lastInSeq  uint64
	lastCpSeq  uint64
	lastCpAck  uint64
	resets     int
	sawWelcome bool
}

// verifyFile checks one session log. A reconnect shows up as the outbound
// input seq restarting from 1 after a welcome, which is legal; any other
// seq regression is a recording bug.
func verifyFile(path string) error {
	s := fileSummary{byType: make(map[string]int)}

	err := sessionlog.ReadFile(path, func(rec sessionlog.Record) error {
		s.records++
		at, err := time.Parse(time.RFC3339Nano, rec.At)
		if err != nil {
			return fmt.Errorf("record %d: bad timestamp %q", s.records, rec.At)
		}
		if at.Before(s.lastAt) {
			return fmt.Errorf("record %d: timestamp went backwards (%s -> %s)", s.records, s.lastAt.Format(time.RFC3339Nano), rec.At)
		}
		s.lastAt = at

		switch rec.Dir {
		case sessionlog.DirIn:
			return s.checkInbound(rec.Frame)
		case sessionlog.DirOut:
			return s.checkOutbound(rec.Frame)
		case sessionlog.DirCheckpoint:
			return s.checkCheckpoint(rec)
		default:
			return fmt.Errorf("record %d: unknown dir %q", s.records, rec.Dir)
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: ok records=%d in=%d out=%d checkpoints=%d reconnects=%d unknown_in=%d\n",
		path, s.records, s.inbound, s.outbound, s.checkpoints, s.resets, s.unknownIn)
	for t, n := range s.byType {
		fmt.Printf("  %-18s %d\n", t, n)
	}
	return nil
}

func (s *fileSummary) checkInbound(raw []byte) error {
	s.inbound++
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return fmt.Errorf("inbound %d: %w", s.inbound, err)
	}
	s.byType[base.Type]++
	switch base.Type {
	case protocol.TypeWelcome, protocol.TypeChunkData, protocol.TypeState,
		protocol.TypeEntitiesUpdate, protocol.TypeEntitiesRemove,
		protocol.TypeResourceUpdate, protocol.TypeStructureUpdate,
		protocol.TypeChat, protocol.TypeDialog, protocol.TypeSystem, protocol.TypeTyping:
	default:
		s.unknownIn++
	}
	if base.Type == protocol.TypeWelcome {
		s.sawWelcome = true
		if s.lastInSeq > 0 {
			// Re-welcome after a drop: the seq counter starts over.
			s.resets++
			s.lastInSeq = 0
			s.lastCpSeq = 0
			s.lastCpAck = 0
		}
	}
	return nil
}

func (s *fileSummary) checkOutbound(raw []byte) error {
	s.outbound++
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return fmt.Errorf("outbound %d: %w", s.outbound, err)
	}
	s.byType[base.Type]++
	if base.Type != protocol.TypeInput {
		return nil
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("outbound %d: input: %w", s.outbound, err)
	}
	if in.Seq <= s.lastInSeq {
		return fmt.Errorf("outbound %d: input seq %d not after %d", s.outbound, in.Seq, s.lastInSeq)
	}
	s.lastInSeq = in.Seq
	return nil
}

func (s *fileSummary) checkCheckpoint(rec sessionlog.Record) error {
	s.checkpoints++
	cp := rec.Checkpoint
	if cp == nil {
		return fmt.Errorf("checkpoint %d: missing payload", s.checkpoints)
	}
	if cp.AckSeq > cp.Seq {
		return fmt.Errorf("checkpoint %d: ack %d ahead of seq %d", s.checkpoints, cp.AckSeq, cp.Seq)
	}
	if cp.Seq < s.lastCpSeq || cp.AckSeq < s.lastCpAck {
		return fmt.Errorf("checkpoint %d: sequence regressed (seq %d<%d or ack %d<%d)",
			s.checkpoints, cp.Seq, s.lastCpSeq, cp.AckSeq, s.lastCpAck)
	}
	if cp.Pending < 0 {
		return fmt.Errorf("checkpoint %d: negative pending", s.checkpoints)
	}
	s.lastCpSeq = cp.Seq
	s.lastCpAck = cp.AckSeq
	return nil
}
