// Package junebug connects the host system to a Junebug SMS gateway.
//
// Outbound, Backend.PushOutgoing turns each host message into a gateway
// destination (either the tel: URN it carries or the first address the
// identity store knows for its contact) and POSTs it to the gateway channel.
// Batches are sent one message at a time and the first failure aborts the
// rest.
//
// Inbound, Backend.InboundHandler accepts the gateway's webhook, maps the
// sender address to an identity (creating one when none exists) and hands the
// message to a backend.Receiver.
//
// Backend embeds backend.NoopSync: Junebug owns no contacts, groups or labels,
// so every synchronisation call succeeds without effect.
package junebug
