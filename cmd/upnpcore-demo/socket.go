package main

import (
	"context"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/ssdp"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/task"
)

// runSharedSocket spawns sock's read loop under a task.Manager of its own.
// host.Host only runs a socket's loop when it created the socket itself;
// since this demo hands the same socket to both the host and the control
// point, neither one owns it, so main must pump it.
func runSharedSocket(ctx context.Context, sock *ssdp.Socket) *task.Manager {
	manager := task.NewManager(1)
	manager.Spawn(ctx, func(ctx context.Context) { sock.Run(ctx) })
	return manager
}
