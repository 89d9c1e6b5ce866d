// Package internal hosts the operator-facing debug endpoint: a plain
// HTML view over the BadgerDB keyspace plus live runtime stats.
package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const inspectPage = `<!DOCTYPE html>
<html>
<head><title>tab-live inspect</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #eee; }
.stats { margin-bottom: 1em; }
</style>
</head>
<body>
<h2>tab-live store</h2>
<div class="stats">
{{range $k, $v := .Stats}}<b>{{$k}}</b>: {{$v}}&nbsp;&nbsp;{{end}}
</div>
<form method="get">
  prefix: <input name="prefix" value="{{.Prefix}}"/>
  <input type="submit" value="scan"/>
</form>
<table>
<tr><th>Key</th><th>Kind</th><th>Entity</th><th>Value</th></tr>
{{range .Items}}
<tr><td>{{.Key}}</td><td>{{.Kind}}</td><td>{{.EntityID}}</td><td>{{.Detail}}</td></tr>
{{end}}
</table>
</body>
</html>`

type InspectRow struct {
	Key      string
	Kind     string
	EntityID string
	Detail   string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer serves /inspect on its own port, outside the public
// WebSocket surface. It scans the store read-only and never blocks the
// write path.
func StartDebugServer(db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.New("inspect").Parse(inspectPage))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "group:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("localhost:%d", port), mux)
	}()
}

// DefaultMapper renders the documented key layout: the kind is the key
// prefix, the entity id its first segment, the detail a compacted copy
// of the JSON value (membership edges have none).
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.SplitN(key, ":", 2)
	row := InspectRow{Key: key, Kind: "RAW", Detail: compact(val)}
	if len(parts) == 2 {
		row.Kind = parts[0]
		row.EntityID = parts[1]
	}
	return row
}

func compact(val []byte) string {
	if len(val) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, val); err != nil {
		return string(val)
	}
	return buf.String()
}
