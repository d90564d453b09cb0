package discovery

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/onvifctl/internal/soap"
)

func probeMatch(urn, xaddrs, scopes, types string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope" xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing" xmlns:d="http://schemas.xmlsoap.org/ws/2005/04/discovery" xmlns:dn="http://www.onvif.org/ver10/network/wsdl">
<SOAP-ENV:Header><wsa:Action>http://schemas.xmlsoap.org/ws/2005/04/discovery/ProbeMatches</wsa:Action></SOAP-ENV:Header>
<SOAP-ENV:Body><d:ProbeMatches><d:ProbeMatch>
<wsa:EndpointReference><wsa:Address>%s</wsa:Address></wsa:EndpointReference>
<d:Types>%s</d:Types>
<d:Scopes MatchBy="http://schemas.xmlsoap.org/ws/2005/04/discovery/rfc3986">%s</d:Scopes>
<d:XAddrs>%s</d:XAddrs>
<d:MetadataVersion>1</d:MetadataVersion>
</d:ProbeMatch></d:ProbeMatches></SOAP-ENV:Body></SOAP-ENV:Envelope>`, urn, types, scopes, xaddrs)
}

const testScopes = "onvif://www.onvif.org/type/video_encoder onvif://www.onvif.org/name/Front_Door_Cam onvif://www.onvif.org/hardware/IPC-100 onvif://www.onvif.org/location/country/japan"

func TestParseProbeMatch(t *testing.T) {
	data := probeMatch("urn:uuid:1111", "http://192.168.1.10/onvif/device_service http://[fe80::1]/onvif/device_service", testScopes, "dn:NetworkVideoTransmitter tds:Device")

	p, ok := ParseProbeMatch([]byte(data))
	require.True(t, ok)

	assert.Equal(t, "urn:uuid:1111", p.URN)
	assert.Equal(t, "Front Door Cam", p.Name)
	assert.Equal(t, "IPC-100", p.Hardware)
	assert.Equal(t, "japan", p.Location)
	assert.Equal(t, []string{"dn:NetworkVideoTransmitter", "tds:Device"}, p.Types)
	assert.Len(t, p.XAddrs, 2)
	assert.Len(t, p.Scopes, 4)
	assert.Equal(t, "http://192.168.1.10/onvif/device_service", p.DeviceServiceURL())
	assert.Equal(t, "192.168.1.10", p.Host())
}

func TestParseProbeMatchDrops(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing urn", probeMatch("", "http://a/onvif/device_service", testScopes, "")},
		{"missing xaddrs", probeMatch("urn:uuid:1", "", testScopes, "")},
		{"missing scopes", probeMatch("urn:uuid:1", "http://a/onvif/device_service", "", "")},
		{"not a probe match", `<Envelope><Body><Hello/></Body></Envelope>`},
		{"not xml", "M-SEARCH * HTTP/1.1\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ParseProbeMatch([]byte(tt.data))
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestBuildProbeMessage(t *testing.T) {
	msg := BuildProbeMessage("uuid:abc", "NetworkVideoTransmitter")

	assert.True(t, strings.HasPrefix(msg, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, msg, `<a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe</a:Action>`)
	assert.Contains(t, msg, `<a:MessageID>uuid:abc</a:MessageID>`)
	assert.Contains(t, msg, `<a:To s:mustUnderstand="1">urn:schemas-xmlsoap-org:ws:2005:04:discovery</a:To>`)
	assert.Contains(t, msg, `>dp0:NetworkVideoTransmitter</d:Types>`)
	assert.NotContains(t, msg, "> <")

	root, err := soap.Parse([]byte(msg))
	require.NoError(t, err)
	assert.Equal(t, "dp0:NetworkVideoTransmitter", soap.Body(root).TextAt("Probe", "Types"))
}

func TestProbeString(t *testing.T) {
	p := &Probe{URN: "urn:uuid:1", Hardware: "X1", XAddrs: []string{"https://10.0.0.2/onvif/device_service"}}
	assert.Equal(t, "ONVIF device urn:uuid:1 (X1) at https://10.0.0.2/onvif/device_service", p.String())

	p.Name = "Gate"
	assert.Contains(t, p.String(), "ONVIF device Gate")
}
