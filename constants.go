package bfasm

import (
	"time"
)

const (
	// Tape sizes must be a multiple of the zeroing chunk.
	ZeroChunkSize = 16
	// Bytes between the tape and the frame base. The cursor save slot lives
	// in the top eight.
	ReservedFrameSize = 16
	SaveSlotSize      = 8

	DEFAULT_TAPE_SIZE        uint = 16 * 20
	DEFAULT_MAX_INSTRUCTIONS uint = 10000000
	DEFAULT_TIMEOUT               = 10 * time.Second
	DEFAULT_HISTORY_NAME          = "history.db"

	// Exit status of a compiled program whose cursor left the tape under
	// the fail policy.
	CursorFaultExitStatus = 1

	sysRead  = 0
	sysWrite = 1
	sysExit  = 60
	stdin    = 0
	stdout   = 1
)
