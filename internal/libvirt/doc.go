// Package libvirt dials the local libvirt daemon for the boot
// validator.
//
// It wraps github.com/digitalocean/go-libvirt connection setup over
// the qemu:///system Unix socket and exposes the underlying
// *libvirt.Libvirt; the validator drives the domain and network
// lifecycle API on it directly.
//
//	client, err := libvirt.ConnectWithContext(ctx, "", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package libvirt
