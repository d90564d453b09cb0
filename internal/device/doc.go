// Package device ties the ONVIF service clients together into a single
// camera session.
//
// A Device is created from either a full device service URL or a bare
// address. Init then reads the device clock, discovers which services the
// camera offers, reads its identity and media profiles, and resolves the
// stream and snapshot URIs of every profile:
//
//	dev, err := device.New(device.Config{Address: "192.168.1.64", Username: "admin", Password: pw})
//	if err != nil {
//	    return err
//	}
//	info, err := dev.Init(ctx)
//
// When created from a bare address, every URL the camera reports is
// rewritten to use that address. Cameras behind NAT or a reverse proxy
// commonly advertise private addresses the caller cannot reach.
//
// The first profile is selected after Init. PTZ and snapshot operations
// act on the selected profile and fail with a state error when there is
// none.
package device
