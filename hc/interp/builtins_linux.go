package interp

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/templelinux/temple/hc"
	"github.com/templelinux/temple/templefs"
)

// The Linux* host bridge. Failures never raise interpreter errors: they
// set the per-VM last-error string and return a zero handle.

func (v *Vm) callBuiltinLinux(name string, args []hc.Expr) (Value, error) {
	switch name {
	case "LinuxLastErr":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("LinuxLastErr expects 0 args")
		}
		return StrV(v.lastHostErr), nil

	case "LinuxBrowse":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("LinuxBrowse(\"url\") expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind != ValStr {
			return Value{}, fmt.Errorf("LinuxBrowse expects a string url")
		}
		v.clearLastHostError()
		return v.spawnHost("LinuxBrowse", "xdg-open", val.S), nil

	case "LinuxOpen":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("LinuxOpen(\"path\") expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind != ValStr {
			return Value{}, fmt.Errorf("LinuxOpen expects a string path")
		}
		v.clearLastHostError()
		host, err := v.fs.ResolveRead(val.S)
		if err != nil {
			v.setLastHostError(err.Error())
			return IntV(0), nil
		}
		if _, err := os.Stat(host); err != nil {
			v.setLastHostError(fmt.Sprintf("LinuxOpen: not found: %s", host))
			return IntV(0), nil
		}
		return v.spawnHost("LinuxOpen", "xdg-open", host), nil

	case "LinuxRun":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("LinuxRun(\"cmd...\") expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind != ValStr {
			return Value{}, fmt.Errorf("LinuxRun expects a string command line")
		}
		return v.linuxRun(val.S), nil
	}
	return Value{}, fmt.Errorf("unknown function")
}

func (v *Vm) spawnHost(what, program string, cmdArgs ...string) Value {
	cmd := exec.Command(program, cmdArgs...)
	if err := cmd.Start(); err != nil {
		v.setLastHostError(fmt.Sprintf("%s: %s: %v", what, program, err))
		return IntV(0)
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return IntV(int64(pid))
}

func (v *Vm) linuxRun(cmdline string) Value {
	v.clearLastHostError()

	argv, err := SplitCmdline(cmdline)
	if err != nil {
		v.setLastHostError("LinuxRun: " + err.Error())
		return IntV(0)
	}
	if len(argv) == 0 {
		v.setLastHostError("LinuxRun: missing program")
		return IntV(0)
	}
	program, rest := argv[0], argv[1:]

	allow := templefs.RunAllowlist(v.fs.OverlayRoot)
	if len(allow) == 0 {
		v.setLastHostError("LinuxRun: disabled (set TEMPLE_LINUX_RUN_ALLOW or create TEMPLE_ROOT/Cfg/LinuxRunAllow.txt)")
		return IntV(0)
	}

	prog := strings.ToLower(program)
	base := strings.ToLower(filepath.Base(program))
	allowed := false
	for _, a := range allow {
		if a == prog || a == base {
			allowed = true
			break
		}
	}
	if !allowed {
		v.setLastHostError("LinuxRun: not allowed: " + program)
		return IntV(0)
	}

	return v.spawnHost("LinuxRun", program, rest...)
}

// SplitCmdline splits a command line with POSIX-ish quoting: single
// quotes are literal, double quotes allow backslash escapes, and an
// unterminated quote is an error.
func SplitCmdline(cmdline string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inSingle, inDouble, escaped := false, false, false

	flush := func() {
		if cur.Len() > 0 {
			args = append(args, cur.String())
			cur.Reset()
		}
	}

	for _, ch := range cmdline {
		if escaped {
			cur.WriteRune(ch)
			escaped = false
			continue
		}
		if inSingle {
			if ch == '\'' {
				inSingle = false
			} else {
				cur.WriteRune(ch)
			}
			continue
		}
		if inDouble {
			switch ch {
			case '"':
				inDouble = false
			case '\\':
				escaped = true
			default:
				cur.WriteRune(ch)
			}
			continue
		}
		switch {
		case ch == '\'':
			inSingle = true
		case ch == '"':
			inDouble = true
		case ch == '\\':
			escaped = true
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			cur.WriteRune(ch)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote in command line")
	}
	flush()
	return args, nil
}
