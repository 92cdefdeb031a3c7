package database

import (
	"strings"
	"time"
)

// maxSQLiteParams is the conservative chunk size for batched statements
// against SQLite's default compiled-in bound-parameter limit.
const maxSQLiteParams = 900

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// inClause builds a "?, ?, ?" placeholder list for args, returning it
// alongside args itself for direct use as query parameters.
func inClause(args []interface{}) (string, []interface{}) {
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = "?"
	}
	return strings.Join(placeholders, ", "), args
}

func int64sToAny(ids []int64) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// chunkStrings splits ss into groups of at most size, preserving order.
// A size <= 0 returns ss as a single chunk.
func chunkStrings(ss []string, size int) [][]string {
	if size <= 0 || len(ss) <= size {
		if len(ss) == 0 {
			return nil
		}
		return [][]string{ss}
	}
	var chunks [][]string
	for len(ss) > 0 {
		n := size
		if n > len(ss) {
			n = len(ss)
		}
		chunks = append(chunks, ss[:n])
		ss = ss[n:]
	}
	return chunks
}
