package adjust

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/runcmd"
)

func TestCheckSupported(t *testing.T) {
	assert.NoError(t, CheckSupported("sles12-64"))
	assert.NoError(t, CheckSupported("ubuntu-64"))
	assert.NoError(t, CheckSupported(""))

	err := CheckSupported("windows2019srv-64")
	require.Error(t, err)
	var unsupported *UnsupportedGuestError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "windows2019srv-64", unsupported.OS)

	assert.Error(t, CheckSupported("winXPPro"))
}

func TestV2VInPlaceRejectsNBD(t *testing.T) {
	a := &V2VInPlace{Runner: runcmd.New(logging.Discard())}
	err := a.Adjust(context.Background(), "/run/nbd.sock", true)
	require.Error(t, err)
	var adjErr *AdjustError
	assert.ErrorAs(t, err, &adjErr)
}

func TestAdjustError(t *testing.T) {
	cause := errors.New("exit status 2")
	err := &AdjustError{Image: "/dst/a.qcow2", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "/dst/a.qcow2")
}

func TestParseInspection(t *testing.T) {
	out := `<?xml version="1.0"?>
<operatingsystems>
  <operatingsystem>
    <name>linux</name>
    <distro>sles</distro>
    <osinfo>sles12sp5</osinfo>
  </operatingsystem>
</operatingsystems>
`
	osd := parseInspection(out)
	assert.Equal(t, "linux", osd.Name)
	assert.Equal(t, "sles12sp5", osd.OSInfo)

	assert.Equal(t, OSData{}, parseInspection("not xml at all"))
}
