package http

import (
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// API serves the read-only views. Nothing here mutates relay state.
type API struct {
	Orch       *orch.Orchestrator
	Port       int
	ICEServers []webrtc.ICEServer
	Started    time.Time
	Now        func() time.Time

	// Addrs is overridable in tests; nil means the host's interfaces.
	Addrs func() ([]net.Addr, error)
}

type ServerInfoResponse struct {
	Hostname         string             `json:"hostname"`
	Addresses        []string           `json:"addresses"`
	Port             int                `json:"port"`
	URL              string             `json:"url"`
	UptimeSeconds    int64              `json:"uptimeSeconds"`
	ActiveMeetings   int                `json:"activeMeetings"`
	ActiveRooms      int                `json:"activeRooms"`
	ConnectedClients int                `json:"connectedClients"`
	ICEServers       []webrtc.ICEServer `json:"iceServers"`
}

type MeetingSummary struct {
	ID                domain.RoomCode `json:"id"`
	Title             string          `json:"title"`
	Participants      int             `json:"participants"`
	MaxParticipants   int             `json:"maxParticipants"`
	PasswordProtected bool            `json:"passwordProtected"`
	CreatedAt         time.Time       `json:"createdAt"`
}

type MeetingDetail struct {
	domain.MeetingInfo
	Participants int `json:"participants"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) ServerInfo(c *gin.Context) {
	hostname, _ := os.Hostname()
	addrs := a.addresses()
	host := "localhost"
	if len(addrs) > 0 {
		host = addrs[0]
	}
	c.JSON(http.StatusOK, ServerInfoResponse{
		Hostname:         hostname,
		Addresses:        addrs,
		Port:             a.Port,
		URL:              "http://" + net.JoinHostPort(host, strconv.Itoa(a.Port)),
		UptimeSeconds:    int64(a.now().Sub(a.Started) / time.Second),
		ActiveMeetings:   a.Orch.Meetings.Len(),
		ActiveRooms:      len(a.Orch.Rooms.List()),
		ConnectedClients: a.Orch.Registry.Count(),
		ICEServers:       a.iceServers(),
	})
}

func (a *API) Meetings(c *gin.Context) {
	meetings := a.Orch.Meetings.List()
	out := make([]MeetingSummary, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, MeetingSummary{
			ID:                m.Code,
			Title:             m.Title,
			Participants:      a.Orch.Rooms.Size(m.Code),
			MaxParticipants:   m.MaxParticipants,
			PasswordProtected: m.PasswordProtected,
			CreatedAt:         m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) Meeting(c *gin.Context) {
	code, err := domain.ParseRoomCode(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	m, ok := a.Orch.Meetings.Get(code)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: app.ErrMeetingNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, MeetingDetail{
		MeetingInfo:  m.Info(),
		Participants: a.Orch.Rooms.Size(code),
	})
}

func (a *API) Rooms(c *gin.Context) {
	rooms := a.Orch.Rooms.List()
	if rooms == nil {
		rooms = []core.RoomInfo{}
	}
	c.JSON(http.StatusOK, rooms)
}

func (a *API) ICE(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": a.iceServers()})
}

func (a *API) iceServers() []webrtc.ICEServer {
	if a.ICEServers == nil {
		return []webrtc.ICEServer{}
	}
	return a.ICEServers
}

// addresses lists non-loopback IPv4 addresses, sorted for stable output.
func (a *API) addresses() []string {
	list := a.Addrs
	if list == nil {
		list = net.InterfaceAddrs
	}
	raw, err := list()
	if err != nil {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			out = append(out, ip4.String())
		}
	}
	sort.Strings(out)
	return out
}
