package rando

import (
	"dmc3rando/config"
	"dmc3rando/hook"
)

// uiHookOwners maps the hook sites that known host mods also patch to
// the config flag that cedes them. Skipping a UI hook degrades the
// item-get text, nothing else.
var uiHookOwners = map[string]func(config.ModsConfig) bool{
	"itemget-open":   func(m config.ModsConfig) bool { return m.DisableDDMKHooks },
	"itemget-render": func(m config.ModsConfig) bool { return m.DisableDDMKHooks },
	"itemget-close":  func(m config.ModsConfig) bool { return m.DisableDDMKHooks },
	"text-dispatch":  func(m config.ModsConfig) bool { return m.DisableCrimsonHooks },
}

// InstallHooks registers every game-function hook. None are enabled
// here; the mediator enables them once a connection is up and disables
// them on disconnect.
func (c *Core) InstallHooks(mods config.ModsConfig) error {
	defs := []hook.Hook{
		{
			Name:      "item-spawn",
			Offset:    config.OffHookItemSpawn,
			StolenLen: 15,
			Handler:   func(hook.Record) { c.onRoomSpawn() },
		},
		{
			Name:      "world-pickup",
			Offset:    config.OffHookWorldPickup,
			StolenLen: 14,
			Capture:   []hook.Reg{hook.RCX},
			Handler:   c.onWorldPickup,
		},
		{
			Name:      "event-pickup",
			Offset:    config.OffHookEventPickup,
			StolenLen: 14,
			Capture:   []hook.Reg{hook.RCX, hook.RDX},
			Handler:   c.onEventPickup,
		},
		{
			Name:      "mission-result",
			Offset:    config.OffHookMissionResult,
			StolenLen: 16,
			Handler:   func(hook.Record) { c.onMissionResult() },
		},
		{
			Name:      "event-table",
			Offset:    config.OffHookEventTable,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onEventTableBuild() },
		},
		{
			Name:      "inventory-setup",
			Offset:    config.OffHookInventorySetup,
			StolenLen: 15,
			Handler:   func(hook.Record) { c.onInventorySetup() },
		},
		{
			Name:      "text-dispatch",
			Offset:    config.OffHookTextDispatch,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onTextDispatch() },
		},
		{
			Name:      "itemget-open",
			Offset:    config.OffHookItemGetSetup,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onItemGetOpen() },
		},
		{
			Name:      "itemget-render",
			Offset:    config.OffHookItemGetRender,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onItemGetRender() },
		},
		{
			Name:      "itemget-close",
			Offset:    config.OffHookItemGetClose,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onItemGetClose() },
		},
		{
			Name:      "inventory-open",
			Offset:    config.OffHookInvOpen,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onInventoryOpen() },
		},
		{
			Name:      "inventory-close",
			Offset:    config.OffHookInvClose,
			StolenLen: 14,
			Handler:   func(hook.Record) { c.onInventoryClose() },
		},
		{
			Name:      "use-item",
			Offset:    config.OffHookUseItem,
			StolenLen: 14,
			Capture:   []hook.Reg{hook.RDX},
			Handler:   c.onUseItem,
		},
		{
			Name:      "shop-purchase",
			Offset:    config.OffHookShopPurchase,
			StolenLen: 14,
			Capture:   []hook.Reg{hook.RDX},
			Handler:   c.onShopPurchase,
		},
	}
	for _, d := range defs {
		if ceded, ok := uiHookOwners[d.Name]; ok && ceded(mods) {
			c.log.Info("hook ceded to host mod", "name", d.Name)
			continue
		}
		if err := c.hooks.Install(d); err != nil {
			return err
		}
	}
	return nil
}
