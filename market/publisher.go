package market

// Publisher 一个轻量事件分发器，订阅者落后时丢弃而不阻塞写入管道。
type Publisher struct {
	quoteSubs []chan Quote
	tradeSubs []chan Trade
}

func NewPublisher() *Publisher {
	return &Publisher{
		quoteSubs: make([]chan Quote, 0),
		tradeSubs: make([]chan Trade, 0),
	}
}

func (p *Publisher) SubscribeQuote() <-chan Quote {
	ch := make(chan Quote, 1)
	p.quoteSubs = append(p.quoteSubs, ch)
	return ch
}

func (p *Publisher) SubscribeTrade() <-chan Trade {
	ch := make(chan Trade, 1)
	p.tradeSubs = append(p.tradeSubs, ch)
	return ch
}

func (p *Publisher) PublishQuote(q Quote) {
	for _, ch := range p.quoteSubs {
		select {
		case ch <- q:
		default:
		}
	}
}

func (p *Publisher) PublishTrade(t Trade) {
	for _, ch := range p.tradeSubs {
		select {
		case ch <- t:
		default:
		}
	}
}
