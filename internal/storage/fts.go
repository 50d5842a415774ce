package storage

import (
	"database/sql"
	"log"
	"strconv"
	"strings"
)

// SearchFullText runs a MATCH query over the stored file contents and
// resolves every hit back to 1-based (line, column) ranges.
func (s *Storage) SearchFullText(term string) []ParseLocation {
	rows := s.executeQuery(
		"SELECT path, content, offsets(file) FROM file WHERE content MATCH ?;",
		`"*`+term+`*"`,
	)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var locations []ParseLocation
	for rows.Next() {
		var path, content, offsetStr sql.NullString
		if err := rows.Scan(&path, &content, &offsetStr); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		offsets, err := parseOffsetGroups(offsetStr.String)
		if err != nil {
			log.Printf("storage: offsets %q: %v", offsetStr.String, err)
			continue
		}
		locations = append(locations, resolveMatchLocations(path.String, content.String, offsets)...)
	}
	return locations
}

// parseOffsetGroups splits the flat integer stream returned by offsets()
// into a slice. Groups of four are (column, term, byte offset, length).
func parseOffsetGroups(str string) ([]int, error) {
	fields := strings.Fields(str)
	offsets := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		offsets[i] = n
	}
	return offsets, nil
}

// resolveMatchLocations walks the file content once, consuming offset groups
// in order and converting byte offsets into 1-based, end-inclusive line and
// column pairs. A location is emitted when the next group starts a new match
// or the groups are exhausted. Matches may span lines.
func resolveMatchLocations(path, content string, offsets []int) []ParseLocation {
	lines := strings.SplitAfter(content, "\n")

	var locations []ParseLocation
	var current ParseLocation
	haveMatch := false

	lineIdx := 0
	charsInPreviousLines := 0

	advance := func(target int) {
		for lineIdx < len(lines)-1 && target >= charsInPreviousLines+len(lines[lineIdx]) {
			charsInPreviousLines += len(lines[lineIdx])
			lineIdx++
		}
	}

	for i := 0; i+3 < len(offsets); i += 4 {
		termIndex := offsets[i+1]
		byteOffset := offsets[i+2]
		length := offsets[i+3]

		if termIndex == 0 {
			if haveMatch {
				locations = append(locations, current)
			}
			advance(byteOffset)
			current = ParseLocation{
				FilePath:  path,
				StartLine: lineIdx + 1,
				StartCol:  byteOffset - charsInPreviousLines + 1,
			}
			haveMatch = true
		}

		advance(byteOffset + length - 1)
		current.EndLine = lineIdx + 1
		current.EndCol = byteOffset + length - charsInPreviousLines
	}

	if haveMatch {
		locations = append(locations, current)
	}
	return locations
}
