package safety

import "testing"

func TestIsMutating_ReadOnlyCommands(t *testing.T) {
	for _, cmd := range []string{
		"ls -la",
		"cat /etc/hostname",
		"grep -r TODO .",
		"git status",
		"git log --oneline -5",
		"ps aux | grep nginx",
		"du -sh . | sort -h",
		"sed 's/a/b/' file.txt",
	} {
		if IsMutating(cmd) {
			t.Fatalf("expected %q to be read-only", cmd)
		}
	}
}

func TestIsMutating_MutatingCommands(t *testing.T) {
	for _, cmd := range []string{
		"rm -rf /tmp/x",
		"touch a.txt",
		"echo hi > out.txt",
		"cat a >> b",
		"sudo ls",
		"git commit -m wip",
		"git push",
		"sed -i 's/a/b/' file.txt",
		"apt install curl",
		"ls && rm a.txt",
		"mkdir -p foo",
	} {
		if !IsMutating(cmd) {
			t.Fatalf("expected %q to be mutating", cmd)
		}
	}
}

func TestIsMutating_PathPrefixedBinary(t *testing.T) {
	if IsMutating("/bin/ls -la") {
		t.Fatal("expected /bin/ls to be read-only")
	}
	if !IsMutating("/bin/rm x") {
		t.Fatal("expected /bin/rm to be mutating")
	}
}
