package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd queries the session index: snapshots, ticks, edits or rejected.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	clientID := fs.String("client", "", "client_id filter (edits, rejected)")
	sinceTick := fs.Uint64("since_tick", 0, "lowest tick to include")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*sessionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -session or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "sessions", *sessionID, "index", "session.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	var rows *sql.Rows
	switch q {
	case "snapshots":
		rows, err = db.Query(`SELECT tick,path,session_id,voxel_size,chunks,digest FROM snapshots WHERE tick>=? ORDER BY tick DESC LIMIT ?`, *sinceTick, *limit)
	case "ticks":
		rows, err = db.Query(`SELECT tick,digest,joins,leaves,edits,rebuilt FROM ticks WHERE tick>=? AND edits>0 ORDER BY tick DESC LIMIT ?`, *sinceTick, *limit)
	case "edits", "rejected":
		query := `SELECT tick,seq,client_id,COALESCE(edit_id,'') AS edit_id,op,COALESCE(tool,'') AS tool,changed,COALESCE(code,'') AS code,COALESCE(reason,'') AS reason FROM edits WHERE tick>=?`
		qargs := []any{*sinceTick}
		if *clientID != "" {
			query += ` AND client_id=?`
			qargs = append(qargs, *clientID)
		}
		if q == "rejected" {
			query += ` AND code IS NOT NULL AND code<>''`
		}
		query += ` ORDER BY tick DESC, seq DESC LIMIT ?`
		rows, err = db.Query(query, append(qargs, *limit)...)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want snapshots|ticks|edits|rejected)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	if err := printRows(rows); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

// printRows writes each row as one JSON object keyed by column name.
func printRows(rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			obj[c] = vals[i]
		}
		printJSON(obj)
	}
	return rows.Err()
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
