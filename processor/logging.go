package processor

import "strings"

const (
	kindAction        = "Action"
	kindPrivateAction = "PrivateAction"
)

const divider = "-------------------------------------"

// prefix identifies the Processor in log lines by the first three characters
// of its id.
func (p *Processor[S, A, P]) prefix() string {
	short := p.id
	if len(short) > 3 {
		short = short[:3]
	}
	return "Processor ID: " + short
}

func (p *Processor[S, A, P]) log(line string) {
	if !p.opts.logEnabled || p.opts.logger == nil {
		return
	}
	p.opts.logger.Log(line)
}

func (p *Processor[S, A, P]) logf(kind string, v any) {
	if !p.opts.logEnabled || p.opts.logger == nil {
		return
	}

	var b strings.Builder
	b.WriteString(p.prefix())
	b.WriteString(" - ")
	b.WriteString(kind)
	b.WriteString(" - ")
	b.WriteString(Describe(v, p.opts.descriptionFirst))
	p.opts.logger.Log(b.String())
}

func (p *Processor[S, A, P]) logDivider() {
	p.log(p.prefix() + " " + divider)
}
