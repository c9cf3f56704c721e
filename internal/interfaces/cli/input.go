package cli

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

// readNotations returns args, or one notation per line of in when args is
// empty or "-".  Blank lines and lines starting with '#' are skipped.
func readNotations(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return args, nil
	}
	var out []string
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.InvalidParam("failed to read notations").WithCause(err)
	}
	if len(out) == 0 {
		return nil, errors.InvalidParam("no notation given")
	}
	return out, nil
}

// readSingle is readNotations for commands taking exactly one notation.
func readSingle(args []string, in io.Reader) (string, error) {
	list, err := readNotations(args, in)
	if err != nil {
		return "", err
	}
	if len(list) != 1 {
		return "", errors.InvalidParam("expected exactly one notation")
	}
	return list[0], nil
}

// readText returns the content of path, or all of in when path is "" or "-".
func readText(path string, in io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "" || path == "-" {
		b, err = io.ReadAll(in)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.InvalidParam("failed to read input").WithDetail(path).WithCause(err)
	}
	return string(b), nil
}

// parseAttachFlag parses "R1:OH:O[*] |$;_R1$|" as label, cap group and
// template notation.  The id is "<label>-<cap>".
func parseAttachFlag(s string) (molecule.Attachment, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || strings.TrimSpace(parts[2]) == "" {
		return molecule.Attachment{}, errors.InvalidParam("attachment must look like LABEL:CAP:NOTATION").WithDetail(s)
	}
	label := strings.TrimSpace(parts[0])
	capGroup := strings.TrimSpace(parts[1])
	return molecule.Attachment{
		ID:       label + "-" + capGroup,
		Label:    label,
		CapGroup: capGroup,
		Notation: strings.TrimSpace(parts[2]),
	}, nil
}

// loadAttachments combines the entries of a JSON attachments file with
// repeated --attach flags.
func loadAttachments(file string, flags []string) ([]molecule.Attachment, error) {
	var out []molecule.Attachment
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.InvalidParam("failed to read attachments file").WithDetail(file).WithCause(err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeAttachmentInvalid, "attachments file is not a JSON array of attachments")
		}
	}
	for _, f := range flags {
		a, err := parseAttachFlag(f)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
