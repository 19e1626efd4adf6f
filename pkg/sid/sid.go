package sid

import (
	"hash/fnv"
	"os"

	"github.com/sony/sonyflake"
)

type Sid struct {
	sf *sonyflake.Sonyflake
}

func NewSid() *Sid {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{MachineID: machineID})
	if sf == nil {
		panic("sonyflake not created")
	}
	return &Sid{sf}
}

// machineID derives the 16 bit machine id from the hostname, so workers in
// containers without a private IPv4 address still get a generator.
func machineID() (uint16, error) {
	host, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return uint16(h.Sum32()), nil
}

func (s Sid) GenString() (string, error) {
	id, err := s.sf.NextID()
	if err != nil {
		return "", err
	}
	return IntToBase62(id), nil
}

func (s Sid) GenUint64() (uint64, error) {
	return s.sf.NextID()
}
