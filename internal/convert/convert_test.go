package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmxmig/vmxmig/internal/config"
	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/runcmd"
)

func TestConvertArgs(t *testing.T) {
	args := convertArgs(Options{Format: config.FormatQCOW2}, "/src/a.vmdk", "/dst/a.qcow2")
	assert.Equal(t, []string{
		"qemu-img", "convert", "-O", "qcow2", "-t", "writeback", "-T", "writeback",
		"/src/a.vmdk", "/dst/a.qcow2",
	}, args)

	args = convertArgs(Options{Format: config.FormatRaw, CacheMode: "none", Parallel: 8}, "s", "t")
	assert.Equal(t, []string{
		"qemu-img", "convert", "-O", "raw", "-t", "none", "-T", "none", "-m", "8", "s", "t",
	}, args)
}

func TestCopyArgs(t *testing.T) {
	args := copyArgs(Options{}, "/tmp/in.sock", "/tmp/out.sock")
	assert.Equal(t, []string{
		"nbdcopy",
		"nbd+unix:///?socket=/tmp/in.sock",
		"nbd+unix:///?socket=/tmp/out.sock",
		"--requests=64", "--flush",
	}, args)

	args = copyArgs(Options{Parallel: 4}, "a", "b")
	assert.Contains(t, args, "-C")
	assert.Contains(t, args, "-T")
	assert.Contains(t, args, "4")
}

func TestServeArgs(t *testing.T) {
	args := serveArgs("/src/a.vmdk", "/tmp/nbd.sock", "writeback", serveOptions{
		format:   "vmdk",
		readOnly: true,
	})
	assert.Equal(t, []string{
		"qemu-nbd", "--cache=writeback", "-t", "--shared=0", "--discard=unmap",
		"--socket", "/tmp/nbd.sock", "-f", "vmdk", "-r", "/src/a.vmdk",
	}, args)

	args = serveArgs("/src/a.vmdk", "/tmp/nbd.sock", "none", serveOptions{snapshot: true})
	assert.Contains(t, args, "-s")
	assert.NotContains(t, args, "-r")
	assert.NotContains(t, args, "-f")
}

func TestVirtualSizeParse(t *testing.T) {
	out := `image: /src/a.vmdk
file format: vmdk
virtual size: 20 GiB (21474836480 bytes)
disk size: 3.5 GiB
`
	m := virtualSizeRE.FindStringSubmatch(out)
	require.NotNil(t, m)
	assert.Equal(t, "21474836480", m[1])

	assert.Nil(t, virtualSizeRE.FindStringSubmatch("no size here"))
}

func TestSkipExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a.qcow2")
	log := logging.Discard()

	assert.False(t, skipExisting(target, false, log), "missing target must convert")

	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	assert.True(t, skipExisting(target, false, log), "existing target must skip")
	assert.False(t, skipExisting(target, true, log), "force must re-convert")
}

func TestQemuImgSkipsExistingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a.qcow2")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	c := NewQemuImg(runcmd.New(logging.Discard()), Options{Log: logging.Discard()})
	assert.NoError(t, c.Convert(context.Background(), "/nonexistent/a.vmdk", target))
}

func TestQemuImgLeavesPartialTargetOnFailure(t *testing.T) {
	dir := t.TempDir()

	// A stand-in qemu-img that writes a partial target and fails.
	script := "#!/bin/sh\nfor last in \"$@\"; do :; done\necho partial > \"$last\"\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qemu-img"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	target := filepath.Join(dir, "a.qcow2")
	c := NewQemuImg(runcmd.New(logging.Discard()), Options{Log: logging.Discard()})
	err := c.Convert(context.Background(), filepath.Join(dir, "a.vmdk"), target)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	_, statErr := os.Stat(target)
	assert.NoError(t, statErr, "partial target must be left on disk for inspection")
}

func TestConversionError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &ConversionError{Source: "/s", Target: "/t", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "/s")
	assert.Contains(t, err.Error(), "/t")
}

func TestNBDURI(t *testing.T) {
	assert.Equal(t, "nbd+unix:///?socket=/run/x.sock", nbdURI("/run/x.sock"))
}
