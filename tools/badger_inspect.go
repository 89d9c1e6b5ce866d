// Command badger_inspect dumps the tab-live store as a table. Handy for
// checking key layout and soft-delete state without starting the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"tab-live/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "entry:", "Prefix to scan")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithReadOnly(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			kind, entityID := splitKey(key)

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, kind, shorten(entityID), describe(kind, v)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func splitKey(key string) (kind, entityID string) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "RAW", key
	}
	return parts[0], parts[1]
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// describe renders a one-line summary per kind; membership edges carry
// no value at all.
func describe(kind string, val []byte) string {
	switch kind {
	case "entry":
		var entry domain.TabEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return string(val)
		}
		state := fmt.Sprintf("v%d", entry.Version)
		if entry.IsDeleted() {
			state += " deleted"
		}
		return fmt.Sprintf("%s %s %s (%s, %d splits)", state, entry.Amount, entry.Currency, entry.Title, len(entry.Splits))
	case "group":
		var group domain.Group
		if err := json.Unmarshal(val, &group); err != nil {
			return string(val)
		}
		return fmt.Sprintf("%s (%s)", group.Name, group.Currency)
	case "participant":
		var p domain.GroupParticipant
		if err := json.Unmarshal(val, &p); err != nil {
			return string(val)
		}
		return fmt.Sprintf("%s (%s)", p.Username, p.UserType)
	case "history":
		var h domain.TabEntryHistory
		if err := json.Unmarshal(val, &h); err != nil {
			return string(val)
		}
		return fmt.Sprintf("%s v%d at %s", h.ChangeType, h.Version, h.ChangedAt.Format("15:04:05"))
	default:
		return string(val)
	}
}
