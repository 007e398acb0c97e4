package rest

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

var rosterHeader = []string{"No", "Nama Partisipan", "Email", "Telepon", "Domisili"}

const rosterEmpty = "Belum ada partisipan terdaftar"

// writeRosterCSV writes one block per scheduled date:
//
//	Tanggal,<date>
//	No,Nama Partisipan,Email,Telepon,Domisili
//	1,<name>,<email>,<phone or ->,<domisili or ->
//
// Blocks are separated by a blank line.
func writeRosterCSV(w io.Writer, sections []domain.RosterSection) error {
	cw := csv.NewWriter(w)
	for i, s := range sections {
		if i > 0 {
			if err := cw.Write([]string{}); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{"Tanggal", s.Date.String()}); err != nil {
			return err
		}
		if err := cw.Write(rosterHeader); err != nil {
			return err
		}
		if s.Empty {
			if err := cw.Write([]string{rosterEmpty}); err != nil {
				return err
			}
			continue
		}
		for _, e := range s.Entries {
			rec := []string{strconv.Itoa(e.Index), e.Name, e.Email, dashIfEmpty(e.Phone), dashIfEmpty(e.Domisili)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

var nonFilename = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// rosterFilename is participants_<title>.csv with whitespace turned into
// underscores and everything else non-alphanumeric dropped.
func rosterFilename(title string) string {
	name := strings.Join(strings.Fields(title), "_")
	name = nonFilename.ReplaceAllString(name, "")
	if name == "" {
		name = "event"
	}
	return "participants_" + name + ".csv"
}
