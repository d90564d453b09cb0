package soap

// Result is a parsed SOAP exchange. It is never mutated after Dispatch
// returns it.
type Result struct {
	// Request is the envelope that was sent.
	Request string
	// Response is the raw response body.
	Response string
	// Root is the parsed Envelope element.
	Root *Node
	// Data is the Body element of the response.
	Data *Node
}

// Payload returns the <action>Response element inside the Body.
func (r *Result) Payload(action string) *Node {
	if r == nil {
		return nil
	}
	return r.Data.Child(action + "Response")
}

// Body returns the Body element of an envelope tree.
func Body(root *Node) *Node {
	if root == nil {
		return nil
	}
	if root.Name == "Body" {
		return root
	}
	return root.Child("Body")
}

// IsFault reports whether the envelope carries a Fault element at all.
func IsFault(root *Node) bool {
	return Body(root).Has("Fault")
}

// FaultReason extracts a human-readable fault reason. It prefers
// Fault/Reason/Text and falls back to Fault/Code/Value followed by the
// subcode value. An empty string means no usable fault was found.
func FaultReason(root *Node) string {
	fault := Body(root).Child("Fault")
	if fault == nil {
		return ""
	}

	if reason := fault.TextAt("Reason", "Text"); reason != "" {
		return reason
	}

	code := fault.Child("Code")
	value := code.TextAt("Value")
	if value == "" {
		return ""
	}
	if sub := code.TextAt("Subcode", "Value"); sub != "" {
		return value + " " + sub
	}
	return value
}
