package engine

// MapRequest describes one map (decrypt) call. Password and PIM are
// borrowed from the caller and never copied into a string.
type MapRequest struct {
	Device         string // stable cache link to the raw device
	MountPoint     string
	NoKernelCrypto bool
	Hash           string
	Encryption     string
	Password       []byte
	PIM            []byte
}

// Args builds the engine argv. The filesystem is not mounted by the
// engine (--filesystem=none); mounting is a separate step.
func (r MapRequest) Args() []string {
	args := []string{
		"-t", "-v",
		"-k", "",
		"--protect-hidden=no",
		"--filesystem=none",
	}
	if r.NoKernelCrypto {
		args = append(args, "-m", "nokernelcrypto")
	}
	if r.Hash != "" {
		args = append(args, "--hash="+r.Hash)
	}
	if r.Encryption != "" {
		args = append(args, "--encryption="+r.Encryption)
	}
	return append(args, r.Device, r.MountPoint)
}

// Input builds the engine stdin: password and PIM, one per line. The
// returned slice is a fresh allocation the caller must zero after use.
func (r MapRequest) Input() []byte {
	buf := make([]byte, 0, len(r.Password)+len(r.PIM)+2)
	buf = append(buf, r.Password...)
	buf = append(buf, '\n')
	buf = append(buf, r.PIM...)
	buf = append(buf, '\n')
	return buf
}

// DismountArgs builds the unmap argv. An empty device unmaps everything.
func DismountArgs(device string, force bool) []string {
	args := []string{"-t"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, "-d")
	if device != "" {
		args = append(args, device)
	}
	return args
}
