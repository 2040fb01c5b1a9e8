// Package heartbeat prints a periodic liveness line with the latest reading
// of every power monitor on the bus.
package heartbeat

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"ina228-go/bus"
	"ina228-go/types"
)

const defaultInterval = 2 * time.Second

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicPowerValues     = bus.T("hal", "cap", "power", string(types.KindPowerMonitor), bus.AnyOne, "value")
)

type Service struct {
	// Out receives each output line; nil prints to the console.
	Out func(line string)

	latest map[string]types.PowerMonitorValue
}

func (s *Service) emit(line string) {
	if s.Out != nil {
		s.Out(line)
		return
	}
	println(line)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	valSub := conn.Subscribe(topicPowerValues)
	defer conn.Unsubscribe(valSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			s.emit("Info: " + t.Format("15:04:05") + " Heartbeat")
			for name, v := range s.latest {
				s.emit("Info: " + Summary(name, v))
			}
		case msg := <-valSub.Channel():
			if v, ok := msg.Payload.(types.PowerMonitorValue); ok {
				s.latest[msg.Topic.At(4)] = v
			}
		case msg := <-cfgSub.Channel():
			if iv := interval(msg.Payload); iv > 0 {
				tick.Reset(iv)
				println("Info: heartbeat interval set to", iv.String())
			}
		}
	}
}

// interval reads {"interval": <seconds>}; 0 means no change.
func interval(payload any) time.Duration {
	var c struct {
		Interval float64 `json:"interval"`
	}
	switch p := payload.(type) {
	case map[string]any:
		c.Interval, _ = p["interval"].(float64)
	case []byte:
		_ = json.Unmarshal(p, &c)
	}
	if c.Interval <= 0 {
		return 0
	}
	return time.Duration(c.Interval * float64(time.Second))
}

// Summary renders one reading as a single line.
func Summary(name string, v types.PowerMonitorValue) string {
	f := func(x float64, unit string) string {
		return strconv.FormatFloat(x, 'f', 4, 64) + unit
	}
	return name + " " + f(v.BusV, "V") + " " + f(v.CurrentA, "A") + " " +
		f(v.PowerW, "W") + " " + f(v.EnergyJ, "J") + " " + f(v.DieC, "C") +
		" diag=0x" + strconv.FormatUint(uint64(v.Diag), 16)
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.latest = make(map[string]types.PowerMonitorValue)
	go s.serviceLoop(ctx, conn)
	return nil
}
