package widgets

import "testing"

func TestRenderSidebarGroupsIdleFirst(t *testing.T) {
	rows := []Row{
		{Name: "idle-one", Status: "Idle"},
		{Name: "run-one", Status: "Running"},
		{Name: "exit-one", Status: "Exited"},
	}
	out := RenderSidebar(rows, 0, 40)
	runIdx := indexOf(out, "RUNNING")
	idleIdx := indexOf(out, "IDLE")
	exitedIdx := indexOf(out, "EXITED")
	if runIdx < 0 || idleIdx < 0 || exitedIdx < 0 {
		t.Fatalf("expected all three group headers present, got:\n%s", out)
	}
	if !(idleIdx < runIdx && runIdx < exitedIdx) {
		t.Fatalf("expected IDLE < RUNNING < EXITED ordering, got indices %d %d %d", idleIdx, runIdx, exitedIdx)
	}
}

func TestRenderSidebarOmitsEmptyGroups(t *testing.T) {
	rows := []Row{{Name: "only-running", Status: "Running"}}
	out := RenderSidebar(rows, 0, 40)
	if indexOf(out, "IDLE") >= 0 || indexOf(out, "EXITED") >= 0 {
		t.Fatalf("expected empty groups to be omitted entirely, got:\n%s", out)
	}
}

func TestStatusDotUnknownStatusFallsBackToDot(t *testing.T) {
	if got := StatusDot("Bogus"); got != "·" {
		t.Fatalf("StatusDot(unknown) = %q, want middle dot fallback", got)
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
