package backend

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rencryptofish/hydra/internal/model"
)

var numstatLineRe = regexp.MustCompile(`^(\d+|-)\t(\d+|-)\t(.+)$`)

// diffTree runs `git diff --numstat` in workDir and parses its output into
// per-file DiffStat rows, for the StateSnapshot's working-tree summary.
// Grounded on the sidecar plugin's git-status tree builder, trimmed to the
// one subcommand Hydra's snapshot needs. "-\t-\tpath" rows (binary files)
// are skipped since they carry no line counts.
func diffTree(workDir string) []model.DiffStat {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "diff", "--numstat")
	cmd.Dir = workDir
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	return parseNumstat(out)
}

// parseNumstat parses `git diff --numstat` output into DiffStat rows,
// split out from diffTree so it can be tested without a git checkout.
func parseNumstat(out []byte) []model.DiffStat {
	var stats []model.DiffStat
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		m := numstatLineRe.FindStringSubmatch(scanner.Text())
		if len(m) != 4 {
			continue
		}
		add, errA := strconv.Atoi(m[1])
		del, errD := strconv.Atoi(m[2])
		if errA != nil || errD != nil {
			continue // binary file ("-\t-\tpath")
		}
		path := m[3]
		if idx := strings.Index(path, "\t"); idx > 0 {
			path = path[:idx] // renamed: "new\told" -> keep new
		}
		stats = append(stats, model.DiffStat{Path: path, Additions: add, Deletions: del})
	}
	return stats
}
