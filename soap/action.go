package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// ParseActionRequest extracts the action name and "in" arguments from a
// control POST body (spec §4.6 "Action dispatch"). The action element's
// namespace is returned as ServiceType exactly as found; this function
// does not compare it against anything (the SOAPAction header cross-check
// happens one level up, in the host package, since it needs the raw HTTP
// header too).
func ParseActionRequest(env *Envelope) (*ActionRequest, error) {
	dec := xml.NewDecoder(bytes.NewReader(env.Body.Content))

	req := &ActionRequest{Args: make(map[string]string)}
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("soap: parsing action request: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if req.Name == "" {
			req.Name = start.Name.Local
			req.ServiceType = start.Name.Space
			continue
		}

		var value string
		if err := dec.DecodeElement(&value, &start); err != nil {
			return nil, fmt.Errorf("soap: decoding argument %s: %w", start.Name.Local, err)
		}
		req.Args[start.Name.Local] = value
		req.ArgOrder = append(req.ArgOrder, start.Name.Local)
	}

	if req.Name == "" {
		return nil, fmt.Errorf("soap: empty action request body")
	}
	return req, nil
}

// ParseActionResponse extracts either a successful response (spec §4.5
// "Action response parsing": locate "<ActionNameResponse>", one argument
// per child) or a Fault from a control-point-side reply body.
func ParseActionResponse(env *Envelope) (*ActionResponse, *Fault, error) {
	dec := xml.NewDecoder(bytes.NewReader(env.Body.Content))

	var name string
	values := make(map[string]string)

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("soap: parsing action response: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if start.Name.Local == "Fault" {
			fault, err := parseFaultElement(dec, start)
			if err != nil {
				return nil, nil, err
			}
			return nil, fault, nil
		}

		if name == "" {
			name = start.Name.Local
			continue
		}

		var value string
		if err := dec.DecodeElement(&value, &start); err != nil {
			return nil, nil, fmt.Errorf("soap: decoding response argument %s: %w", start.Name.Local, err)
		}
		values[start.Name.Local] = value
	}

	if name == "" {
		return nil, nil, fmt.Errorf("soap: neither a response nor a Fault in body")
	}
	return &ActionResponse{Name: name, Values: values}, nil, nil
}
