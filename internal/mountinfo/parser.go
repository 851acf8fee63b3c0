package mountinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parse parses the mount table at path and returns all entries
func Parse(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	entries, err := ParseReader(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return entries, nil
}

// ParseReader parses mountinfo-formatted data from r
// Malformed lines are skipped, matching how /proc consumers generally
// treat the file
func ParseReader(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		entry, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// parseLine parses a single mountinfo line into an Entry
func parseLine(line string) (Entry, bool) {
	fields := strings.Fields(line)

	// Shortest valid line: 6 fixed columns, "-", then 3 trailing columns
	if len(fields) < 10 {
		return Entry{}, false
	}

	mountID, err := strconv.Atoi(fields[0])
	if err != nil {
		return Entry{}, false
	}

	parentID, err := strconv.Atoi(fields[1])
	if err != nil {
		return Entry{}, false
	}

	major, minor, ok := parseDeviceID(fields[2])
	if !ok {
		return Entry{}, false
	}

	// Optional fields run from column 7 up to the "-" separator
	sep := -1
	for i := 6; i < len(fields); i++ {
		if fields[i] == "-" {
			sep = i
			break
		}
	}
	if sep < 0 || sep+3 >= len(fields) {
		return Entry{}, false
	}

	return Entry{
		MountID:        mountID,
		ParentID:       parentID,
		DevMajor:       major,
		DevMinor:       minor,
		Root:           unescapeField(fields[3]),
		MountPoint:     unescapeField(fields[4]),
		Options:        fields[5],
		OptionalFields: fields[6:sep],
		FSType:         fields[sep+1],
		Source:         unescapeField(fields[sep+2]),
		SuperOptions:   fields[sep+3],
	}, true
}

// parseDeviceID splits a "major:minor" device id into its components
func parseDeviceID(s string) (major, minor int, ok bool) {
	majStr, minStr, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}

	major, err := strconv.Atoi(majStr)
	if err != nil {
		return 0, 0, false
	}

	minor, err = strconv.Atoi(minStr)
	if err != nil {
		return 0, 0, false
	}

	return major, minor, true
}

// unescapeField unescapes special characters in mount fields
// The kernel escapes spaces as \040, tabs as \011, etc.
func unescapeField(s string) string {
	s = strings.ReplaceAll(s, "\\040", " ")
	s = strings.ReplaceAll(s, "\\011", "\t")
	s = strings.ReplaceAll(s, "\\012", "\n")
	s = strings.ReplaceAll(s, "\\134", "\\")
	return s
}
