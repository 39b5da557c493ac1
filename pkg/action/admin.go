package action

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/build"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"
)

// HostnameReply carries the resolved host name.
type HostnameReply struct {
	Hostname string
}

// PlatformInfoReply mirrors a uname-style host description.
type PlatformInfoReply struct {
	System  string
	Node    string
	Release string
	Version string
	Machine string
}

// ClientInfoReply carries the static build identity.
type ClientInfoReply struct {
	ClientName    string
	ClientVersion int
	BuildTime     string
}

// StartupReply is the unsolicited boot announcement.
type StartupReply struct {
	ClientInfo ClientInfoReply
	BootTime   time.Time
}

// echo copies the request arguments back to the requester.
func echo(ctx context.Context, in Input, out Emitter) error {
	return out.Emit(in.Args)
}

func getHostname(ctx context.Context, in Input, out Emitter) error {
	name, err := os.Hostname()
	if err != nil {
		return errors.Wrap(err, "unable to resolve hostname")
	}
	return out.Emit(HostnameReply{Hostname: name})
}

// getPlatformInfo describes the host. OS probe failures are environment
// errors: reported to the requester, never fatal to the worker.
func getPlatformInfo(ctx context.Context, in Input, out Emitter) error {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to read platform info")
	}
	return out.Emit(PlatformInfoReply{
		System:  info.OS,
		Node:    info.Hostname,
		Release: info.KernelVersion,
		Version: info.PlatformVersion,
		Machine: runtime.GOARCH,
	})
}

func getClientInfo(ctx context.Context, in Input, out Emitter) error {
	return out.Emit(clientInfo())
}

func clientInfo() ClientInfoReply {
	return ClientInfoReply{
		ClientName:    build.ClientName,
		ClientVersion: build.ClientVersion,
		BuildTime:     build.BuildTime,
	}
}

// sendStartupInfo publishes the boot announcement. Its registration routes
// every emit to the startup well-known session; the requester, if any, never
// sees the reply.
func sendStartupInfo(ctx context.Context, in Input, out Emitter) error {
	reply := StartupReply{ClientInfo: clientInfo()}
	if boot, err := host.BootTime(); err == nil {
		reply.BootTime = time.Unix(int64(boot), 0)
	}
	return out.Emit(reply)
}

func getConfig(deps Deps) RunFunc {
	return func(ctx context.Context, in Input, out Emitter) error {
		return out.Emit(deps.Config.Snapshot())
	}
}

// updateConfig applies the whitelisted subset of the request's fields.
// Rejected fields never fail the request; the allowed subset still applies.
func updateConfig(deps Deps) RunFunc {
	return func(ctx context.Context, in Input, out Emitter) error {
		applied := deps.Config.Update(in.Args)
		if deps.Log != nil {
			deps.Log.WithField("applied", applied).Debug("config updated")
		}
		return nil
	}
}

func getClientStats(deps Deps) RunFunc {
	return func(ctx context.Context, in Input, out Emitter) error {
		return out.Emit(deps.Stats.Snapshot())
	}
}
