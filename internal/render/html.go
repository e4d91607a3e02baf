package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cocosci/fishchain/internal/chain"
	"github.com/cocosci/fishchain/internal/condition"
	"github.com/cocosci/fishchain/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Notices shown on the read-message screen
const (
	LoadingNotice      = "Loading...."
	FirstInChainNotice = "You are the first participant in your chain, so there is not a message for you to read."
	EmptyBeliefNotice  = "The message was left empty."

	messageIntro = "The following message was written by the previous participant to help you do well on this task:"
	messageOutro = `Press "Continue" when you have finished reading.`
)

// barScale converts a count value into a bar height percentage
const barScale = 5

// MessageHTML renders free text as one paragraph per line
func MessageHTML(s string) string {
	return renderNodes(lineNodes(s)...)
}

// ReceivedMessage renders what the next participant sees for chain c.
// A nil chain is still loading; it never blocks.
func ReceivedMessage(c *chain.Chain) string {
	return ReceivedMessageFor(c, nil)
}

// ReceivedMessageFor is ReceivedMessage with belief categories laid out in
// labels order. A nil labels slice sorts the message keys.
func ReceivedMessageFor(c *chain.Chain, labels []string) string {
	if c == nil {
		return LoadingNotice
	}
	last, ok := c.LastMessage()
	if !ok {
		return FirstInChainNotice
	}

	var body []*html.Node
	if last.IsBelief() {
		body = []*html.Node{beliefNode(last.Belief, labels)}
	} else {
		body = lineNodes(last.Text)
	}

	nodes := []*html.Node{element(atom.P, "instructions-text", text(messageIntro))}
	nodes = append(nodes, body...)
	nodes = append(nodes, element(atom.P, "instructions-text", text(messageOutro)))
	return renderNodes(nodes...)
}

// BeliefMessageHTML renders a disclosed belief as labelled bars
func BeliefMessageHTML(msg model.Message, labels []string) string {
	return renderNodes(beliefNode(msg, labels))
}

func beliefNode(msg model.Message, labels []string) *html.Node {
	if labels == nil {
		labels = messageLabels(msg)
	}

	viewer := element(atom.Div, "message-viewer")
	if len(msg) == 0 {
		viewer.AppendChild(element(atom.P, "instructions-text", text(EmptyBeliefNotice)))
	}

	row := element(atom.Div, "elicitation-row")
	for _, label := range labels {
		item := element(atom.Div, "prob-wrapper")
		barWrapper := element(atom.Div, "prob-bar-wrapper")
		caption := element(atom.Div, "")
		caption.AppendChild(text(label))

		if v, ok := msg[label]; ok {
			bar := element(atom.Div, "prob-bar")
			style := "height: " + formatNumber(v*barScale) + "%"
			if swatch, ok := condition.Swatches[label]; ok {
				style += "; background-color: " + swatch
			}
			bar.Attr = append(bar.Attr, html.Attribute{Key: "style", Val: style})
			barWrapper.AppendChild(bar)

			caption.AppendChild(element(atom.Br, ""))
			value := element(atom.Span, "")
			value.AppendChild(text(formatNumber(v)))
			caption.AppendChild(value)
		}

		item.AppendChild(barWrapper)
		item.AppendChild(caption)
		row.AppendChild(item)
	}
	viewer.AppendChild(row)

	info := element(atom.Div, "confidenceBlock")
	info.AppendChild(text("Information: "))
	if v, ok := msg[model.InformationKey]; ok {
		span := element(atom.Span, "")
		span.AppendChild(text(formatNumber(v) + " catches"))
		info.AppendChild(span)
	}
	viewer.AppendChild(info)

	return viewer
}

// messageLabels returns the category keys of msg in sorted order
func messageLabels(msg model.Message) []string {
	labels := make([]string, 0, len(msg))
	for k := range msg {
		if k != model.InformationKey {
			labels = append(labels, k)
		}
	}
	sort.Strings(labels)
	return labels
}

func lineNodes(s string) []*html.Node {
	lines := strings.Split(s, "\n")
	nodes := make([]*html.Node, len(lines))
	for i, line := range lines {
		nodes[i] = element(atom.P, "message-text", text(line))
	}
	return nodes
}

func element(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func renderNodes(nodes ...*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		// strings.Builder writes never fail
		_ = html.Render(&sb, n)
	}
	return sb.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
