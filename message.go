package reqchan

// Envelope is the capability every message handle flowing through a
// Channel must provide: the channel stamps and reads these three fields
// but otherwise treats the message as opaque (zero-copy: only the pointer
// crosses the data queue).
type Envelope interface {
	// GetSequence/SetSequence access the sender-stamped sequence number.
	GetSequence() uint64
	SetSequence(uint64)

	// GetAck/SetAck access the sender's knowledge of the peer's sequence
	// at send time.
	GetAck() uint64
	SetAck(uint64)

	// When returns the monotonic-nanosecond creation timestamp.
	When() uint64
}

// ReplyEnvelope extends Envelope with the two timing fields a worker
// stamps onto a reply before sending it back.
type ReplyEnvelope interface {
	Envelope

	// GetProcessingTime/SetProcessingTime access the worker-measured
	// request processing duration, in nanoseconds.
	GetProcessingTime() uint64
	SetProcessingTime(uint64)

	// GetCPUTime/SetCPUTime access the worker-measured CPU time consumed
	// processing this request, in nanoseconds.
	GetCPUTime() uint64
	SetCPUTime(uint64)
}

// Message is the concrete envelope type this package ships: a plain
// struct satisfying both Envelope and ReplyEnvelope, wrapping an arbitrary
// payload. Callers may instead implement Envelope/ReplyEnvelope on their
// own request/reply types; Message is provided because most callers don't
// need to.
type Message struct {
	Sequence uint64
	Ack      uint64

	// WhenNanos is the monotonic-nanosecond timestamp at which this
	// message was created, per the MonotonicClock external collaborator.
	WhenNanos uint64

	// ProcessingTime and CPUTime are populated by the worker before a
	// reply is sent; zero on requests.
	ProcessingTime uint64
	CPUTime        uint64

	// Payload is the opaque application data this message carries. The
	// channel never inspects it.
	Payload any
}

var (
	_ Envelope      = (*Message)(nil)
	_ ReplyEnvelope = (*Message)(nil)
)

func (m *Message) GetSequence() uint64        { return m.Sequence }
func (m *Message) SetSequence(seq uint64)     { m.Sequence = seq }
func (m *Message) GetAck() uint64             { return m.Ack }
func (m *Message) SetAck(ack uint64)          { m.Ack = ack }
func (m *Message) When() uint64               { return m.WhenNanos }
func (m *Message) GetProcessingTime() uint64  { return m.ProcessingTime }
func (m *Message) SetProcessingTime(v uint64) { m.ProcessingTime = v }
func (m *Message) GetCPUTime() uint64         { return m.CPUTime }
func (m *Message) SetCPUTime(v uint64)        { m.CPUTime = v }

// NewMessage constructs a Message with WhenNanos set from clock, ready to
// pass to SendRequest or SendReply.
func NewMessage(clock MonotonicClock, payload any) *Message {
	return &Message{WhenNanos: clock.NowNanos(), Payload: payload}
}

// MonotonicClock is the wall-clock-source external collaborator: a
// strictly non-decreasing nanosecond counter, abstracted so the core never
// depends on a wall-clock directly (see spec §6.3).
type MonotonicClock interface {
	// NowNanos returns nanoseconds since an arbitrary, fixed epoch (e.g.
	// process start). Must be strictly non-decreasing.
	NowNanos() uint64
}

// SystemClock is a MonotonicClock backed by time.Now()'s monotonic
// reading, suitable for production use.
type SystemClock struct{}

func (SystemClock) NowNanos() uint64 {
	return uint64(monotonicNow())
}
