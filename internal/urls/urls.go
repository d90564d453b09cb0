package urls

// CoreSpecification covers device management, capabilities, WS-Security
// and SOAP fault codes.
const CoreSpecification = "https://www.onvif.org/specs/core/ONVIF-Core-Specification.pdf"

// Profiles lists the ONVIF conformance profiles (S, T, G, ...). A camera
// only implements the operations of the profiles it claims.
const Profiles = "https://www.onvif.org/profiles/"

// WSDiscovery is the OASIS WS-Discovery 1.1 specification used for
// multicast probing.
const WSDiscovery = "https://docs.oasis-open.org/ws-dd/discovery/1.1/os/wsdd-discovery-1.1-spec-os.html"
