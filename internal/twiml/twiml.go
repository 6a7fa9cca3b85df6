// Package twiml renders flow decisions as Twilio voice markup.
package twiml

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/richfit/myibot/internal/flow"
	"github.com/richfit/myibot/internal/session"
)

// ContentType is the media type of rendered responses.
const ContentType = "text/xml; charset=utf-8"

const noInputLine = "No input received."

// timeouts is how many seconds Twilio waits for the first keypress, per step.
var timeouts = map[session.StepName]int{
	session.StepAuth:               10,
	session.StepMenu:               8,
	session.StepBalance:            7,
	session.StepTransferAmount:     10,
	session.StepTransferRecipient:  12,
	session.StepTransferConfirm:    8,
	session.StepRegisterID:         12,
	session.StepRegisterPIN:        12,
	session.StepRegisterPINConfirm: 12,
	session.StepRegisterCodeMenu:   8,
}

const defaultTimeout = 10

type response struct {
	XMLName  xml.Name  `xml:"Response"`
	Gather   *gather   `xml:"Gather,omitempty"`
	Say      []say     `xml:"Say"`
	Redirect *redirect `xml:"Redirect,omitempty"`
	Hangup   *struct{} `xml:"Hangup,omitempty"`
}

type gather struct {
	Input               string `xml:"input,attr"`
	NumDigits           int    `xml:"numDigits,attr"`
	Timeout             int    `xml:"timeout,attr"`
	Action              string `xml:"action,attr"`
	Method              string `xml:"method,attr"`
	FinishOnKey         string `xml:"finishOnKey,attr,omitempty"`
	ActionOnEmptyResult string `xml:"actionOnEmptyResult,attr,omitempty"`
	Say                 []say  `xml:"Say"`
}

type say struct {
	Text string `xml:",chardata"`
}

type redirect struct {
	Method string `xml:"method,attr"`
	URL    string `xml:",chardata"`
}

// Renderer turns decisions into TwiML documents with absolute callback URLs.
type Renderer struct {
	baseURL string
}

// NewRenderer builds a renderer. Callback paths are joined onto baseURL; an
// empty baseURL leaves them relative, which Twilio resolves against the
// request URL.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Render encodes d.
func (r *Renderer) Render(d flow.Decision) ([]byte, error) {
	resp := response{}
	if d.Hangup {
		resp.Say = says(d.Lines)
		resp.Hangup = &struct{}{}
		return encode(resp)
	}

	if d.Digits == 0 {
		resp.Say = says(d.Lines)
		resp.Redirect = &redirect{Method: "POST", URL: r.url(d.Path)}
		return encode(resp)
	}

	timeout, ok := timeouts[d.Next]
	if !ok {
		timeout = defaultTimeout
	}
	g := &gather{
		Input:       "dtmf",
		NumDigits:   d.Digits,
		Timeout:     timeout,
		Action:      r.url(d.Path),
		Method:      "POST",
		FinishOnKey: d.FinishOnKey,
		Say:         says(d.Lines),
	}
	if d.SubmitEmpty {
		g.ActionOnEmptyResult = strconv.FormatBool(true)
	}
	resp.Gather = g
	resp.Say = []say{{Text: noInputLine}}
	resp.Redirect = &redirect{Method: "POST", URL: r.url(d.Fallback)}
	return encode(resp)
}

// Error renders the spoken system-error response used when a webhook cannot
// be processed.
func (r *Renderer) Error() []byte {
	body, err := encode(response{
		Say:    []say{{Text: "A system error occurred. Please hang up and call again."}},
		Hangup: &struct{}{},
	})
	if err != nil {
		return []byte(xml.Header + "<Response><Hangup></Hangup></Response>")
	}
	return body
}

func (r *Renderer) url(path string) string {
	return r.baseURL + path
}

func says(lines []string) []say {
	out := make([]say, 0, len(lines))
	for _, line := range lines {
		out = append(out, say{Text: line})
	}
	return out
}

func encode(resp response) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(resp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
