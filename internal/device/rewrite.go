package device

import "net/url"

// rewriteXAddr points a device-reported service URL at the session host.
// The path and query are kept.
func (d *Device) rewriteXAddr(direct string) string {
	if !d.keepAddr {
		return direct
	}
	u, err := url.Parse(direct)
	if err != nil {
		return direct
	}
	return "http://" + d.address + u.EscapedPath() + search(u)
}

// rewriteURI rebases a stream URI onto http://<address>. A path on the
// session address is kept as a prefix.
func (d *Device) rewriteURI(direct string) string {
	return d.rebase(direct, false)
}

// rewriteSnapshotURI is rewriteURI but keeps the device's scheme.
func (d *Device) rewriteSnapshotURI(direct string) string {
	return d.rebase(direct, true)
}

func (d *Device) rebase(direct string, keepScheme bool) string {
	if !d.keepAddr || direct == "" {
		return direct
	}
	parts, err := url.Parse(direct)
	if err != nil {
		return direct
	}
	base, err := url.Parse("http://" + d.address)
	if err != nil {
		return direct
	}

	if keepScheme && parts.Scheme != "" {
		base.Scheme = parts.Scheme
	}
	if base.Path == "" || base.Path == "/" {
		base.Path = parts.Path
		base.RawPath = parts.RawPath
	} else {
		base.Path += parts.Path
		base.RawPath = ""
	}
	base.RawQuery = parts.RawQuery
	return base.String()
}

func search(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}
